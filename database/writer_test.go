package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minor-industries/ermc/database/inmem"
	"github.com/minor-industries/ermc/schema"
	"github.com/minor-industries/ermc/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func runWriter(w *Writer) (context.CancelFunc, *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()
	return cancel, wg
}

func TestWriterLastWriteWins(t *testing.T) {
	kv := inmem.NewBackend()
	w := NewWriter(kv, storage.SeriesKey, time.Hour, nil)

	// nothing is running yet; Persist must not block
	w.Persist(schema.Series{{X: 0.5, Y: 1}})
	w.Persist(schema.Series{{X: 0.2, Y: 2}, {X: 0.5, Y: 1}})
	w.Persist(schema.Series{{X: 0.2, Y: 2}, {X: 0.5, Y: 1}, {X: 0.8, Y: 3}})

	cancel, wg := runWriter(w)
	cancel()
	wg.Wait()

	data, found, err := kv.Get(storage.SeriesKey)
	require.NoError(t, err)
	require.True(t, found)
	require.JSONEq(t, `[{"x":0.2,"y":2},{"x":0.5,"y":1},{"x":0.8,"y":3}]`, string(data))
	require.Equal(t, 1, kv.Writes())
}

func TestWriterFlushesOnInterval(t *testing.T) {
	kv := inmem.NewBackend()
	w := NewWriter(kv, storage.SeriesKey, 5*time.Millisecond, nil)

	cancel, wg := runWriter(w)
	defer func() {
		cancel()
		wg.Wait()
	}()

	w.Persist(schema.Series{{X: 0.3, Y: 314.159}})

	require.Eventually(t, func() bool {
		_, found, _ := kv.Get(storage.SeriesKey)
		return found
	}, time.Second, 5*time.Millisecond)
}

func TestWriterSnapshotIsCopied(t *testing.T) {
	kv := inmem.NewBackend()
	w := NewWriter(kv, storage.SeriesKey, time.Hour, nil)

	series := schema.Series{{X: 0.3, Y: 1}}
	w.Persist(series)
	series[0].Y = 99

	cancel, wg := runWriter(w)
	cancel()
	wg.Wait()

	data, _, err := kv.Get(storage.SeriesKey)
	require.NoError(t, err)
	require.JSONEq(t, `[{"x":0.3,"y":1}]`, string(data))
}

type failingKV struct {
	inmem.Backend
}

func (f *failingKV) Set(string, []byte) error {
	return errors.New("disk full")
}

func TestWriterFailureIsCounted(t *testing.T) {
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_persist_failures_total"})
	w := NewWriter(&failingKV{}, storage.SeriesKey, time.Millisecond, failures)

	cancel, wg := runWriter(w)

	w.Persist(schema.Series{{X: 0.3, Y: 1}})
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(failures) == 1
	}, time.Second, time.Millisecond)

	w.Persist(schema.Series{{X: 0.3, Y: 1}, {X: 0.4, Y: 2}})
	cancel()
	wg.Wait()

	require.Equal(t, 2.0, testutil.ToFloat64(failures))
}

func TestOpen(t *testing.T) {
	kv, err := Open(BackendInmem, "")
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	_, err = Open("redis", "")
	require.Error(t, err)
}
