package source

import (
	"context"

	"github.com/minor-industries/ermc/schema"
)

const (
	DefaultVoltage = 5.0  // volts
	DefaultCurrent = 0.02 // amps
)

type Source interface {
	Acquire(ctx context.Context) (schema.Measurement, error)
}

// Fixed stands in for the meter and always returns the same reading.
type Fixed struct {
	Voltage float64
	Current float64
}

func Default() *Fixed {
	return &Fixed{
		Voltage: DefaultVoltage,
		Current: DefaultCurrent,
	}
}

func (f *Fixed) Acquire(ctx context.Context) (schema.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return schema.Measurement{}, err
	}
	return schema.Measurement{
		Voltage: f.Voltage,
		Current: f.Current,
	}, nil
}
