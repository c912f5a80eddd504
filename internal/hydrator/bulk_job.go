package hydrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/canon"
	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/snapshot"
)

// Refresher reloads one snapshot scope; city is empty or an all-cities value
// for the every-city snapshot. snapshot.ErrLocked means another instance is
// already refreshing the scope.
type Refresher interface {
	Refresh(ctx context.Context, city string) (int, error)
}

type BulkConfig struct {
	// Cities are warmed after the all-cities snapshot.
	Cities               []string
	Interval             time.Duration
	PauseBetweenRequests time.Duration
	RequestTimeout       time.Duration
}

// BulkJob keeps the shared snapshot cache warm so request paths rarely hit
// the source.
type BulkJob struct {
	Refresher Refresher
	Logger    *zap.Logger
	Config    BulkConfig
}

func (j *BulkJob) validate() error {
	if j == nil {
		return errors.New("nil bulk job")
	}
	if j.Refresher == nil {
		return errors.New("hydrator bulk job missing refresher")
	}
	if j.Logger == nil {
		j.Logger = zap.NewNop()
	}
	return nil
}

// scopes lists the all-cities scope followed by the configured cities,
// de-duplicated.
func (j *BulkJob) scopes() []string {
	out := []string{catalog.AllCities}
	seen := map[string]bool{}
	for _, c := range j.Config.Cities {
		c = canon.Name(c)
		if c == "" || catalog.IsAllCities(c) || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func (j *BulkJob) Run(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	interval := j.Config.Interval
	if interval <= 0 {
		return j.RunOnce(ctx)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	j.Logger.Info("hydrator bulk job starting", zap.Duration("interval", interval), zap.Int("scopes", len(j.scopes())))
	if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		j.Logger.Warn("hydrator bulk job initial run failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			j.Logger.Info("hydrator bulk job stopping", zap.Error(ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				j.Logger.Warn("hydrator bulk job iteration failed", zap.Error(err))
			}
		}
	}
}

// RunOnce refreshes every scope, pausing between them. Failures of single
// scopes are joined; cancellation stops the pass.
func (j *BulkJob) RunOnce(ctx context.Context) error {
	if err := j.validate(); err != nil {
		return err
	}
	timeout := j.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var joined error
	for i, scope := range j.scopes() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i > 0 && j.Config.PauseBetweenRequests > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(j.Config.PauseBetweenRequests):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		n, err := j.Refresher.Refresh(reqCtx, scope)
		cancel()
		if errors.Is(err, snapshot.ErrLocked) {
			j.Logger.Info("snapshot skipped, locked by another instance", zap.String("scope", scope))
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			joined = errors.Join(joined, fmt.Errorf("scope %s: %w", scope, err))
			continue
		}
		j.Logger.Info("snapshot warmed", zap.String("scope", scope), zap.Int("listings", n))
	}
	return joined
}
