package session

import (
	"context"
	"math"
	"testing"

	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/database/inmem"
	"github.com/minor-industries/ermc/engine"
	"github.com/minor-industries/ermc/schema"
	"github.com/minor-industries/ermc/source"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	snapshots []schema.Series
	messages  []broker.Message
}

func (r *recorder) Persist(series schema.Series) {
	r.snapshots = append(r.snapshots, series.Clone())
}

func (r *recorder) Publish(msg broker.Message) {
	r.messages = append(r.messages, msg)
}

func newSession(t *testing.T, policy engine.ZeroRadiusPolicy) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(Options{
		Source:    source.Default(),
		Policy:    policy,
		Persister: rec,
		Publisher: rec,
	})
	return s, rec
}

func TestCalculate(t *testing.T) {
	s, rec := newSession(t, engine.PropagateNonFinite)

	m, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, schema.Measurement{Voltage: 5, Current: 0.02}, m)
	require.Equal(t, &m, s.Measurement())

	res := s.Calculate("0.3", "0.1")
	require.Equal(t, StatusOK, res.Status)
	require.NoError(t, res.Err)
	require.InDelta(t, 314.159, res.Resistivity, 1e-3)
	require.Equal(t, 0.3, res.Point.X)
	require.InDelta(t, 314.159, *s.Latest(), 1e-3)

	require.Len(t, rec.snapshots, 1)
	require.Len(t, rec.messages, 2)
	require.Equal(t, m, rec.messages[0])
	update := rec.messages[1].(schema.Update)
	require.Equal(t, res.Point, update.Latest)
	require.Len(t, update.Series, 1)
}

func TestCalculateKeepsSeriesSorted(t *testing.T) {
	s, rec := newSession(t, engine.PropagateNonFinite)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	for _, l := range []string{"0.5", "0.2", "0.8"} {
		require.Equal(t, StatusOK, s.Calculate(l, "0.1").Status)
	}

	var xs []float64
	for _, p := range s.Series() {
		xs = append(xs, p.X)
	}
	require.Equal(t, []float64{0.2, 0.5, 0.8}, xs)
	require.Len(t, rec.snapshots, 3)
	require.Equal(t, s.Series(), rec.snapshots[2])
}

func TestCalculateWithoutFetch(t *testing.T) {
	s, rec := newSession(t, engine.PropagateNonFinite)

	res := s.Calculate("0.3", "0.1")
	require.Equal(t, StatusMeasurementUnavailable, res.Status)
	require.True(t, errors.Is(res.Err, engine.ErrMeasurementUnavailable))
	require.Empty(t, s.Series())
	require.Nil(t, s.Latest())
	require.Empty(t, rec.snapshots)
	require.Empty(t, rec.messages)
}

func TestCalculateInvalidInput(t *testing.T) {
	s, rec := newSession(t, engine.PropagateNonFinite)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	for _, tc := range []struct{ l, r string }{
		{"", "0.1"},
		{"0.3", ""},
		{"x", "0.1"},
	} {
		res := s.Calculate(tc.l, tc.r)
		require.Equal(t, StatusInvalidInput, res.Status)
		require.True(t, errors.Is(res.Err, engine.ErrInvalidInput))
	}

	require.Empty(t, s.Series())
	require.Empty(t, rec.snapshots)
	require.Len(t, rec.messages, 1) // the measurement only
}

func TestInvalidInputCheckedBeforeMeasurement(t *testing.T) {
	s, _ := newSession(t, engine.PropagateNonFinite)
	require.Equal(t, StatusInvalidInput, s.Calculate("", "").Status)
}

func TestZeroRadiusPropagate(t *testing.T) {
	s, rec := newSession(t, engine.PropagateNonFinite)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res := s.Calculate("0.3", "0")
	require.Equal(t, StatusOK, res.Status)
	require.True(t, math.IsInf(res.Resistivity, 1))
	require.Len(t, s.Series(), 1)
	require.Len(t, rec.snapshots, 1)

	data, err := storage.EncodeSeries(rec.snapshots[0])
	require.NoError(t, err)
	require.JSONEq(t, `[{"x":0.3,"y":null}]`, string(data))
}

func TestZeroRadiusReject(t *testing.T) {
	s, rec := newSession(t, engine.RejectNonFinite)
	_, err := s.Fetch(context.Background())
	require.NoError(t, err)

	res := s.Calculate("0.3", "0")
	require.Equal(t, StatusNonFinite, res.Status)
	require.True(t, errors.Is(res.Err, engine.ErrNonFinite))
	require.Empty(t, s.Series())
	require.Empty(t, rec.snapshots)
}

func TestRehydrate(t *testing.T) {
	kv := inmem.NewBackend()
	require.NoError(t, kv.Set(storage.SeriesKey, []byte(`[{"x":0.8,"y":3},{"x":0.2,"y":1}]`)))

	s, _ := newSession(t, engine.PropagateNonFinite)
	require.NoError(t, s.Rehydrate(kv))
	require.Equal(t, schema.Series{{X: 0.2, Y: 1}, {X: 0.8, Y: 3}}, s.Series())

	_, err := s.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, StatusOK, s.Calculate("0.5", "0.1").Status)
	require.Len(t, s.Series(), 3)
}

func TestRehydrateMissingKey(t *testing.T) {
	s, _ := newSession(t, engine.PropagateNonFinite)
	require.NoError(t, s.Rehydrate(inmem.NewBackend()))
	require.Empty(t, s.Series())
}

func TestRehydrateCorrupt(t *testing.T) {
	kv := inmem.NewBackend()
	require.NoError(t, kv.Set(storage.SeriesKey, []byte(`not json`)))

	s, _ := newSession(t, engine.PropagateNonFinite)
	require.Error(t, s.Rehydrate(kv))
}

type brokenSource struct{}

func (brokenSource) Acquire(context.Context) (schema.Measurement, error) {
	return schema.Measurement{}, errors.New("no meter")
}

func TestFetchError(t *testing.T) {
	s := New(Options{Source: brokenSource{}})
	_, err := s.Fetch(context.Background())
	require.Error(t, err)
	require.Nil(t, s.Measurement())
	require.Equal(t, StatusMeasurementUnavailable, s.Calculate("0.3", "0.1").Status)
}
