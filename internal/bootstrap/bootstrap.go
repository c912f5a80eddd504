// Package bootstrap wires the snapshot pipeline shared by the API server and
// the hydrator: listing source, Redis, event bus and loader.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/config"
	"github.com/yourorg/catalog-api/internal/events"
	"github.com/yourorg/catalog-api/internal/redisx"
	"github.com/yourorg/catalog-api/internal/snapshot"
	"github.com/yourorg/catalog-api/internal/store"
	"github.com/yourorg/catalog-api/upstream"
)

type App struct {
	Source snapshot.Source
	// Redis is nil when no address is configured.
	Redis  *redisx.Client
	Events events.Publisher
	Loader *snapshot.Loader

	closers []func() error
}

// Open connects everything the loader needs. Background goroutines stop when
// ctx is cancelled; Close releases connections.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	app := &App{}
	src, closeSrc, err := NewSource(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.Source = src
	if closeSrc != nil {
		app.closers = append(app.closers, closeSrc)
	}

	if cfg.Redis.Address != "" {
		rdb := redisx.New(redisx.Options{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx)
		cancel()
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		pub, err := events.NewRedis(ctx, rdb, cfg.Redis.Channel, 0, log)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("redis subscribe: %w", err)
		}
		app.Redis = rdb
		app.Events = pub
	} else {
		log.Warn("redis not configured; snapshots are cached per process only")
		app.Events = events.NewInMemory(0)
	}

	app.Loader = snapshot.New(ctx, src, app.Redis, app.Events, snapshot.Config{
		CacheTTL:       cfg.Snapshot.CacheTTL,
		StaleAfter:     cfg.Snapshot.StaleAfter,
		FetchTimeout:   cfg.Snapshot.FetchTimeout,
		RefreshWorkers: cfg.Snapshot.RefreshWorkers,
		RefreshQueue:   cfg.Snapshot.RefreshQueue,
	}, log)
	return app, nil
}

// NewSource builds the configured listing source. The returned close func
// may be nil.
func NewSource(ctx context.Context, cfg *config.Config, log *zap.Logger) (snapshot.Source, func() error, error) {
	switch cfg.Source {
	case config.SourcePostgres:
		st, err := store.Open(cfg.Postgres.DSN, cfg.Postgres.MaxOpen, cfg.Postgres.MaxIdle)
		if err != nil {
			return nil, nil, fmt.Errorf("store open: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := st.Ping(pingCtx); err != nil {
			_ = st.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := st.Migrate(pingCtx); err != nil {
				_ = st.Close()
				return nil, nil, fmt.Errorf("postgres migrate: %w", err)
			}
			log.Info("postgres schema migrated")
		}
		return st, st.Close, nil
	case config.SourceHTTP:
		return upstream.NewClient(upstream.Config{
			BaseURL: cfg.Upstream.BaseURL,
			APIKey:  cfg.Upstream.APIKey,
			Timeout: cfg.Upstream.Timeout,
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
