package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/bootstrap"
	"github.com/yourorg/catalog-api/internal/config"
	"github.com/yourorg/catalog-api/internal/hydrator"
	"github.com/yourorg/catalog-api/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(zap.String("service", "catalog-hydrator"))
	defer func() { _ = lg.Sync() }()

	if cfg.Redis.Address == "" {
		lg.Fatal("redis.address must be set; the hydrator only warms the shared cache")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(rootCtx, cfg, lg)
	if err != nil {
		lg.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()

	job := &hydrator.BulkJob{
		Refresher: app.Loader,
		Logger:    lg,
		Config: hydrator.BulkConfig{
			Cities:               cfg.Hydrator.Cities,
			Interval:             cfg.Hydrator.Interval,
			PauseBetweenRequests: cfg.Hydrator.Pause,
			RequestTimeout:       cfg.Hydrator.RequestTimeout,
		},
	}

	if cfg.Hydrator.RunOnce {
		if err := job.RunOnce(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Fatal("hydrator bulk run failed", zap.Error(err))
		}
		return
	}
	if err := job.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("hydrator job stopped with error", zap.Error(err))
	}
}
