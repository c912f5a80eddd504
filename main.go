package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/yourorg/catalog-api/http"
	"github.com/yourorg/catalog-api/internal/bootstrap"
	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/config"
	"github.com/yourorg/catalog-api/internal/geoip"
	"github.com/yourorg/catalog-api/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New(cfg.Logging.Level, cfg.Logging.Format).With(zap.String("service", cfg.App.Name))
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("startup failed", zap.Error(err))
	}
	defer app.Close()
	go app.Loader.Run(ctx)

	// Warm the every-city snapshot so the first visitor does not wait on the source.
	go func() {
		if _, err := app.Loader.Get(ctx, catalog.AllCities); err != nil {
			lg.Warn("snapshot warm-up failed", zap.Error(err))
		}
	}()

	svc := catalog.NewService(
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithMaxPageSize(cfg.Catalog.MaxPageSize),
		catalog.WithCarouselSize(cfg.Catalog.CarouselSize),
		catalog.WithRadiusKm(cfg.Catalog.RadiusKm),
	)

	var locator httpapi.Locator
	if cfg.GeoIP.Enabled {
		locator = geoip.New(geoip.Config{
			BaseURL:           cfg.GeoIP.BaseURL,
			RequestsPerMinute: cfg.GeoIP.RequestsPerMinute,
			Timeout:           cfg.GeoIP.Timeout,
		}, lg)
	}

	router := BuildRouter(RouterDeps{
		Catalog: httpapi.CatalogDeps{
			Snapshots: app.Loader,
			Service:   svc,
			GeoIP:     locator,
			PerCity:   cfg.Snapshot.PerCity,
			Logger:    lg,
		},
		Geo:               httpapi.GeoDeps{GeoIP: locator, Logger: lg},
		Logger:            lg,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Warn("shutdown", zap.Error(err))
		}
	}()

	lg.Info("catalog-api listening",
		zap.Int("port", cfg.App.Port),
		zap.String("source", app.Source.Name()),
		zap.Bool("redis", app.Redis != nil),
		zap.Bool("geoip", locator != nil),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("server stopped", zap.Error(err))
	}
}
