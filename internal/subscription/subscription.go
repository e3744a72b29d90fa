package subscription

import (
	"context"

	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/messages"
	"github.com/minor-industries/ermc/schema"
)

// Snapshot returns the current series and latest result.
type Snapshot func() (schema.Series, *float64)

type Subscription struct {
	snapshot Snapshot
}

func NewSubscription(snapshot Snapshot) *Subscription {
	return &Subscription{snapshot: snapshot}
}

// Run sends the current chart to outMsg, then a fresh chart for every
// update published on br. It returns when ctx is done or the broker stops,
// and closes outMsg.
func (sub *Subscription) Run(
	ctx context.Context,
	br *broker.Broker,
	outMsg chan<- *messages.Chart,
) {
	defer close(outMsg)

	msgCh := br.Subscribe()
	defer br.Unsubscribe(msgCh)

	series, latest := sub.snapshot()
	if !sub.send(ctx, outMsg, messages.NewChart(series, latest)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgCh:
			if !ok {
				return
			}
			update, ok := m.(schema.Update)
			if !ok {
				continue
			}
			latest := update.Latest.Y
			if !sub.send(ctx, outMsg, messages.NewChart(update.Series, &latest)) {
				return
			}
		}
	}
}

func (sub *Subscription) send(
	ctx context.Context,
	outMsg chan<- *messages.Chart,
	chart *messages.Chart,
) bool {
	select {
	case outMsg <- chart:
		return true
	case <-ctx.Done():
		return false
	}
}
