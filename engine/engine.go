// Package engine turns a voltage/current reading and a pair of lengths into a
// resistivity value and maintains the series of results, sorted by length.
//
// Everything here is a pure function of its arguments; callers own the state.
package engine

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/minor-industries/ermc/schema"
	"github.com/pkg/errors"
)

var (
	ErrMeasurementUnavailable = errors.New("measurement unavailable")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNonFinite              = errors.New("non-finite resistivity")
)

// ZeroRadiusPolicy decides what happens when the formula does not produce a
// finite number, most commonly because the smaller radius length is zero.
type ZeroRadiusPolicy int

const (
	// PropagateNonFinite returns ±Inf or NaN as the result.
	PropagateNonFinite ZeroRadiusPolicy = iota
	// RejectNonFinite returns ErrNonFinite instead.
	RejectNonFinite
)

func ParsePolicy(s string) (ZeroRadiusPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "propagate":
		return PropagateNonFinite, nil
	case "reject":
		return RejectNonFinite, nil
	default:
		return 0, fmt.Errorf("unknown zero radius policy: %q", s)
	}
}

func (p ZeroRadiusPolicy) String() string {
	switch p {
	case PropagateNonFinite:
		return "propagate"
	case RejectNonFinite:
		return "reject"
	default:
		return fmt.Sprintf("ZeroRadiusPolicy(%d)", int(p))
	}
}

// Compute evaluates
//
//	rho = (π · V · (L² − r²)) / (2 · r · I)
//
// where L is the length and r the smaller radius length. A nil measurement
// means nothing has been acquired yet.
func Compute(
	m *schema.Measurement,
	lengths schema.LengthPair,
	policy ZeroRadiusPolicy,
) (float64, error) {
	if m == nil {
		return 0, ErrMeasurementUnavailable
	}

	l := lengths.Length
	r := lengths.SmallerRadiusLength

	rho := (math.Pi * m.Voltage * (math.Pow(l, 2) - math.Pow(r, 2))) /
		(2 * r * m.Current)

	if policy == RejectNonFinite && !isFinite(rho) {
		return 0, errors.Wrapf(ErrNonFinite, "length=%g smaller radius length=%g", l, r)
	}

	return rho, nil
}

// ParseLengths parses the two text fields. Both must hold finite numbers.
func ParseLengths(length, smallerRadiusLength string) (schema.LengthPair, error) {
	l, err := parseField("length", length)
	if err != nil {
		return schema.LengthPair{}, err
	}

	r, err := parseField("smaller radius length", smallerRadiusLength)
	if err != nil {
		return schema.LengthPair{}, err
	}

	return schema.LengthPair{
		Length:              l,
		SmallerRadiusLength: r,
	}, nil
}

func parseField(name, s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrapf(ErrInvalidInput, "%s is empty", name)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInput, "%s: %q is not a number", name, s)
	}

	if !isFinite(v) {
		return 0, errors.Wrapf(ErrInvalidInput, "%s: %q is not finite", name, s)
	}

	return v, nil
}

// Record returns a new series containing p, sorted ascending by X. Points
// with equal X keep their insertion order. The input is not modified.
func Record(series schema.Series, p schema.Point) schema.Series {
	result := make(schema.Series, len(series), len(series)+1)
	copy(result, series)
	result = append(result, p)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].X < result[j].X
	})

	return result
}

// ExportLabelsAndValues projects the series into chart axis labels (X with
// one decimal place) and the matching Y values.
func ExportLabelsAndValues(series schema.Series) ([]string, []float64) {
	labels := make([]string, len(series))
	values := make([]float64, len(series))

	for i, p := range series {
		labels[i] = formatLabel(p.X)
		values[i] = p.Y
	}

	return labels, values
}

// formatLabel renders x with one decimal place. Values exactly halfway between
// two tenths round away from zero; strconv would round them to even.
func formatLabel(x float64) string {
	if x == 0 {
		return "0.0"
	}
	if !isFinite(x) {
		return strconv.FormatFloat(x, 'f', 1, 64)
	}

	tenths := new(big.Rat).SetFloat64(x)
	tenths.Mul(tenths, big.NewRat(10, 1))
	if tenths.Denom().Cmp(big.NewInt(2)) != 0 {
		return strconv.FormatFloat(x, 'f', 1, 64)
	}

	// numerator is odd: |x|*10 = n + 1/2, so the rounded magnitude is n+1
	n := new(big.Int).Abs(tenths.Num())
	n.Add(n, big.NewInt(1))
	n.Rsh(n, 1)

	whole, frac := new(big.Int).QuoRem(n, big.NewInt(10), new(big.Int))
	sign := ""
	if x < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), frac.String())
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
