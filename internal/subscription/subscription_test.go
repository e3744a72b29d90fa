package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/messages"
	"github.com/minor-industries/ermc/schema"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	br := broker.NewBroker()
	go br.Start(ctx)

	latest := 1.0
	sub := NewSubscription(func() (schema.Series, *float64) {
		return schema.Series{{X: 0.2, Y: 1}}, &latest
	})

	out := make(chan *messages.Chart)
	go sub.Run(ctx, br, out)

	chart := <-out
	require.Equal(t, []string{"0.2"}, chart.Labels)
	require.Equal(t, 1.0, *chart.Latest)

	require.Eventually(t, func() bool { return br.SubCount() == 1 }, time.Second, time.Millisecond)

	br.Publish(schema.Measurement{Voltage: 5, Current: 0.02}) // ignored
	br.Publish(schema.Update{
		Series: schema.Series{{X: 0.2, Y: 1}, {X: 0.3, Y: 314.159}},
		Latest: schema.Point{X: 0.3, Y: 314.159},
	})

	chart = <-out
	require.Equal(t, []string{"0.2", "0.3"}, chart.Labels)
	require.Equal(t, 314.159, *chart.Latest)

	cancel()
	for range out {
	}
}
