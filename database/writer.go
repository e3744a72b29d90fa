package database

import (
	"context"
	"time"

	log "github.com/cihub/seelog"
	"github.com/minor-industries/ermc/schema"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Writer stores series snapshots in the background. Callers never wait on
// the store and never see its errors; a newer snapshot replaces any snapshot
// that has not been written yet.
type Writer struct {
	kv       storage.KV
	key      string
	interval time.Duration
	failures prometheus.Counter

	pending chan schema.Series
}

// NewWriter creates a writer for key. failures may be nil.
func NewWriter(
	kv storage.KV,
	key string,
	interval time.Duration,
	failures prometheus.Counter,
) *Writer {
	return &Writer{
		kv:       kv,
		key:      key,
		interval: interval,
		failures: failures,
		pending:  make(chan schema.Series, 1),
	}
}

func (w *Writer) Persist(series schema.Series) {
	snapshot := series.Clone()
	for {
		select {
		case w.pending <- snapshot:
			return
		default:
		}
		// drop the stale snapshot
		select {
		case <-w.pending:
		default:
		}
	}
}

// Run writes the latest snapshot every interval until ctx is done, then
// writes whatever is still pending and returns.
func (w *Writer) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var latest schema.Series
	dirty := false

	for {
		select {
		case s := <-w.pending:
			latest = s
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			w.write(latest)
			dirty = false
		case <-ctx.Done():
			select {
			case s := <-w.pending:
				latest = s
				dirty = true
			default:
			}
			if dirty {
				w.write(latest)
			}
			return
		}
	}
}

func (w *Writer) write(series schema.Series) {
	err := func() error {
		data, err := storage.EncodeSeries(series)
		if err != nil {
			return errors.Wrap(err, "encode")
		}
		return errors.Wrap(w.kv.Set(w.key, data), "set")
	}()
	if err == nil {
		return
	}

	log.Errorf("persist %s (%d points): %v", w.key, len(series), err)
	if w.failures != nil {
		w.failures.Inc()
	}
}
