package messages

import (
	"math"

	"github.com/minor-industries/ermc/engine"
	"github.com/minor-industries/ermc/schema"
)

// Chart is what a line chart renderer needs: one label per point on the x
// axis and the matching values. A null value is drawn as a gap.
type Chart struct {
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
	Latest *float64   `json:"latest,omitempty"`
	Error  string     `json:"error,omitempty"`
}

func FloatP(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func NewChart(series schema.Series, latest *float64) *Chart {
	labels, values := engine.ExportLabelsAndValues(series)

	result := &Chart{
		Labels: labels,
		Values: make([]*float64, len(values)),
	}
	for i, v := range values {
		result.Values[i] = FloatP(v)
	}
	if latest != nil {
		result.Latest = FloatP(*latest)
	}

	return result
}
