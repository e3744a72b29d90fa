package ermc

import (
	"context"
	"sync"
	"time"

	log "github.com/cihub/seelog"
	"github.com/gin-gonic/gin"
	"github.com/minor-industries/ermc/broker"
	"github.com/minor-industries/ermc/config"
	"github.com/minor-industries/ermc/database"
	"github.com/minor-industries/ermc/prom"
	"github.com/minor-industries/ermc/session"
	"github.com/minor-industries/ermc/source"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

type App struct {
	session *session.Session
	broker  *broker.Broker
	writer  *database.Writer
	metrics *prom.Metrics
	server  *gin.Engine
	gather  prometheus.Gatherer

	wg sync.WaitGroup
}

// New wires a session to kv and starts the background workers. They stop
// when ctx is done; Wait blocks until the last snapshot has been written.
func New(
	ctx context.Context,
	cfg *config.Config,
	kv storage.KV,
	reg Registry,
) (*App, error) {
	metrics, err := prom.NewMetrics(reg)
	if err != nil {
		return nil, errors.Wrap(err, "new metrics")
	}

	br := broker.NewBroker()
	if err := prom.RegisterBroker(reg, br); err != nil {
		return nil, errors.Wrap(err, "broker metrics")
	}

	writer := database.NewWriter(
		kv,
		storage.SeriesKey,
		time.Duration(cfg.Storage.FlushMs)*time.Millisecond,
		metrics.PersistFailures,
	)

	sess := session.New(session.Options{
		Source: &source.Fixed{
			Voltage: cfg.Source.Voltage,
			Current: cfg.Source.Current,
		},
		Policy:    cfg.Policy(),
		Persister: writer,
		Publisher: br,
	})

	if cfg.Engine.Rehydrate {
		if err := sess.Rehydrate(kv); err != nil {
			return nil, errors.Wrap(err, "rehydrate")
		}
	}

	a := &App{
		session: sess,
		broker:  br,
		writer:  writer,
		metrics: metrics,
		server:  gin.Default(),
		gather:  reg,
	}

	if err := a.setupServer(); err != nil {
		return nil, errors.Wrap(err, "setup server")
	}

	metricsCh := br.Subscribe()

	a.goRun(func() { br.Start(ctx) })
	a.goRun(func() { writer.Run(ctx) })
	a.goRun(func() { metrics.Publish(br, metricsCh) })

	log.Infof("session %s started (zero radius policy: %s, %d points)",
		sess.ID, cfg.Policy(), len(sess.Series()))

	return a, nil
}

func (a *App) goRun(f func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		f()
	}()
}

func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) Session() *session.Session {
	return a.session
}

func (a *App) GetEngine() *gin.Engine {
	return a.server
}
