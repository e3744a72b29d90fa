package session

import (
	"context"
	"sync"

	log "github.com/cihub/seelog"
	"github.com/google/uuid"
	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/engine"
	"github.com/minor-industries/ermc/schema"
	"github.com/minor-industries/ermc/source"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
)

type Status int

const (
	StatusOK Status = iota
	StatusInvalidInput
	StatusMeasurementUnavailable
	StatusNonFinite
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidInput:
		return "invalid_input"
	case StatusMeasurementUnavailable:
		return "measurement_unavailable"
	case StatusNonFinite:
		return "non_finite"
	default:
		return "unknown"
	}
}

// Result describes the outcome of Calculate. Point and Resistivity are only
// set when Status is StatusOK.
type Result struct {
	Status      Status
	Point       schema.Point
	Resistivity float64
	Err         error
}

// Persister receives a full snapshot after every recorded point. It must
// not block.
type Persister interface {
	Persist(series schema.Series)
}

type Options struct {
	Source    source.Source
	Policy    engine.ZeroRadiusPolicy
	Persister Persister        // optional
	Publisher broker.Publisher // optional
}

// Session owns the state of one calculator screen: the last measurement,
// the series and the latest result.
type Session struct {
	ID string

	src       source.Source
	policy    engine.ZeroRadiusPolicy
	persister Persister
	publisher broker.Publisher

	lock        sync.Mutex
	measurement *schema.Measurement
	series      schema.Series
	latest      *float64
}

func New(opts Options) *Session {
	src := opts.Source
	if src == nil {
		src = source.Default()
	}

	return &Session{
		ID:        uuid.New().String(),
		src:       src,
		policy:    opts.Policy,
		persister: opts.Persister,
		publisher: opts.Publisher,
		series:    schema.Series{},
	}
}

// Fetch acquires a new measurement and makes it the current one.
func (s *Session) Fetch(ctx context.Context) (schema.Measurement, error) {
	m, err := s.src.Acquire(ctx)
	if err != nil {
		return schema.Measurement{}, errors.Wrap(err, "acquire")
	}

	s.lock.Lock()
	s.measurement = &m
	s.lock.Unlock()

	log.Debugf("session %s: measurement V=%g I=%g", s.ID, m.Voltage, m.Current)

	if s.publisher != nil {
		s.publisher.Publish(m)
	}

	return m, nil
}

// Calculate parses the two length fields, computes the resistivity from
// the current measurement and records it. Nothing is recorded, persisted
// or published unless the result is StatusOK.
func (s *Session) Calculate(length, smallerRadiusLength string) Result {
	lengths, err := engine.ParseLengths(length, smallerRadiusLength)
	if err != nil {
		return s.skip(StatusInvalidInput, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	rho, err := engine.Compute(s.measurement, lengths, s.policy)
	switch {
	case errors.Is(err, engine.ErrMeasurementUnavailable):
		return s.skip(StatusMeasurementUnavailable, err)
	case errors.Is(err, engine.ErrNonFinite):
		return s.skip(StatusNonFinite, err)
	case err != nil:
		return s.skip(StatusInvalidInput, err)
	}

	p := schema.Point{X: lengths.Length, Y: rho}
	s.series = engine.Record(s.series, p)
	s.latest = &rho

	log.Infof("session %s: length=%g smaller radius length=%g resistivity=%g (%d points)",
		s.ID, lengths.Length, lengths.SmallerRadiusLength, rho, len(s.series))

	if s.persister != nil {
		s.persister.Persist(s.series)
	}
	if s.publisher != nil {
		s.publisher.Publish(schema.Update{
			Series: s.series.Clone(),
			Latest: p,
		})
	}

	return Result{
		Status:      StatusOK,
		Point:       p,
		Resistivity: rho,
	}
}

func (s *Session) skip(status Status, err error) Result {
	log.Warnf("session %s: calculation skipped: %v", s.ID, err)
	return Result{Status: status, Err: err}
}

// Rehydrate replaces the series with the snapshot stored in kv, if any.
func (s *Session) Rehydrate(kv storage.KV) error {
	data, found, err := kv.Get(storage.SeriesKey)
	if err != nil {
		return errors.Wrap(err, "get snapshot")
	}
	if !found {
		return nil
	}

	series, err := storage.DecodeSeries(data)
	if err != nil {
		return errors.Wrap(err, "decode snapshot")
	}

	var rebuilt schema.Series
	for _, p := range series {
		rebuilt = engine.Record(rebuilt, p)
	}
	if rebuilt == nil {
		rebuilt = schema.Series{}
	}

	s.lock.Lock()
	s.series = rebuilt
	s.lock.Unlock()

	log.Infof("session %s: restored %d points", s.ID, len(rebuilt))
	return nil
}

func (s *Session) Series() schema.Series {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.series.Clone()
}

func (s *Session) Measurement() *schema.Measurement {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.measurement == nil {
		return nil
	}
	m := *s.measurement
	return &m
}

func (s *Session) Latest() *float64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.latest == nil {
		return nil
	}
	v := *s.latest
	return &v
}
