package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/cihub/seelog"
	"github.com/minor-industries/ermc"
	"github.com/minor-industries/ermc/config"
	"github.com/minor-industries/ermc/database"
	"github.com/minor-industries/ermc/logging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func run() error {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	cfg, err := config.LoadEnv(*configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}

	if err := logging.Setup(cfg.Log.Level); err != nil {
		return errors.Wrap(err, "setup logging")
	}
	defer log.Flush()

	kv, err := database.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer kv.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := ermc.New(ctx, cfg, kv, reg)
	if err != nil {
		return errors.Wrap(err, "new app")
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: app.GetEngine(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (storage: %s %s)", cfg.Server.Address, cfg.Storage.Backend, cfg.Storage.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "listen")
		}
	}()

	select {
	case err = <-errCh:
		stop()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Errorf("shutdown: %v", shutdownErr)
	}

	// flushes the last snapshot
	app.Wait()
	return err
}

func main() {
	if err := run(); err != nil {
		log.Critical(err)
		log.Flush()
		os.Exit(1)
	}
}
