package source

import (
	"context"
	"testing"

	"github.com/minor-industries/ermc/schema"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	m, err := Default().Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, schema.Measurement{Voltage: 5, Current: 0.02}, m)
}

func TestFixedCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Fixed{Voltage: 1, Current: 1}).Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
