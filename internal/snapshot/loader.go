package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yourorg/catalog-api/internal/canon"
	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/events"
	"github.com/yourorg/catalog-api/internal/metrics"
	"github.com/yourorg/catalog-api/internal/redisx"
	"github.com/yourorg/catalog-api/internal/refresh"
)

// ScopeAll is the cache scope of the every-city snapshot.
const ScopeAll = "all"

// ErrUnavailable is returned when no copy of a snapshot can be produced.
var ErrUnavailable = errors.New("snapshot unavailable")

// ErrLocked is returned by Refresh when another instance is refreshing the
// same scope.
var ErrLocked = errors.New("snapshot refresh locked by another instance")

// Source is the listing source of truth.
type Source interface {
	Name() string
	FetchListings(ctx context.Context, city string) ([]catalog.Listing, error)
}

type Meta struct {
	FetchedAt  time.Time `json:"fetched_at"`
	StaleAfter time.Time `json:"stale_after"`
	Source     string    `json:"source"`
}

type envelope struct {
	Listings []catalog.Listing `json:"listings"`
	Meta     Meta              `json:"meta"`
}

// Snapshot is an immutable set of listings shared by every query that reads it.
type Snapshot struct {
	Scope    string
	Listings []catalog.Listing
	Meta     Meta
	Stale    bool
	// Layer is where the copy came from: memory, redis, source or expired.
	Layer string
}

type Config struct {
	// CacheTTL bounds how long a copy may be served at all.
	CacheTTL time.Duration
	// StaleAfter is when a copy should be refreshed in the background.
	StaleAfter     time.Duration
	LockTTL        time.Duration
	FetchTimeout   time.Duration
	KeyPrefix      string
	RefreshWorkers int
	RefreshQueue   int
}

func (c *Config) defaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.StaleAfter <= 0 || c.StaleAfter > c.CacheTTL {
		c.StaleAfter = min(5*time.Minute, c.CacheTTL)
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "catalog:snapshot:"
	}
}

type entry struct {
	listings []catalog.Listing
	meta     Meta
}

// Loader serves snapshots from process memory, then Redis, then the source,
// refreshing stale copies in the background.
type Loader struct {
	src    Source
	redis  *redisx.Client
	pub    events.Publisher
	cfg    Config
	log    *zap.Logger
	origin string
	now    func() time.Time

	group     singleflight.Group
	refresher *refresh.Refresher

	mu  sync.RWMutex
	mem map[string]entry
}

// New builds a loader whose refresh workers live until ctx is cancelled.
// rdb and pub may be nil.
func New(ctx context.Context, src Source, rdb *redisx.Client, pub events.Publisher, cfg Config, log *zap.Logger) *Loader {
	cfg.defaults()
	l := &Loader{
		src:    src,
		redis:  rdb,
		pub:    pub,
		cfg:    cfg,
		log:    log.With(zap.String("component", "snapshot")),
		origin: uuid.NewString(),
		now:    time.Now,
		mem:    make(map[string]entry),
	}
	l.refresher = refresh.New(ctx, cfg.RefreshQueue, cfg.RefreshWorkers, cfg.FetchTimeout, func(ctx context.Context, j refresh.Job) {
		if _, err := l.Refresh(ctx, j.Scope); err != nil && !errors.Is(err, ErrLocked) {
			l.log.Warn("background refresh failed", zap.String("scope", j.Scope), zap.Error(err))
		}
	})
	return l
}

// Origin identifies this loader in published events.
func (l *Loader) Origin() string { return l.origin }

// Scope maps a city filter value to its cache scope.
func Scope(city string) string {
	if catalog.IsAllCities(city) {
		return ScopeAll
	}
	return canon.Name(city)
}

func sourceCity(scope string) string {
	if scope == ScopeAll {
		return ""
	}
	return scope
}

// Get returns the snapshot for city. A stale copy is returned immediately
// while a refresh is queued. When the source fails, an expired in-memory copy
// is preferred over an error.
func (l *Loader) Get(ctx context.Context, city string) (Snapshot, error) {
	scope := Scope(city)
	now := l.now()

	if e, ok := l.memory(scope); ok && now.Before(e.meta.FetchedAt.Add(l.cfg.CacheTTL)) {
		stale := now.After(e.meta.StaleAfter)
		if stale {
			l.enqueue(scope)
		}
		metrics.SnapshotLoads.WithLabelValues("memory", "hit").Inc()
		return Snapshot{Scope: scope, Listings: e.listings, Meta: e.meta, Stale: stale, Layer: "memory"}, nil
	}

	v, err, _ := l.group.Do(scope, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.cfg.FetchTimeout)
		defer cancel()
		return l.load(ctx, scope)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (l *Loader) load(ctx context.Context, scope string) (Snapshot, error) {
	if snap, ok := l.fromRedis(ctx, scope); ok {
		return snap, nil
	}

	e, err := l.fetch(ctx, scope)
	if err == nil {
		metrics.SnapshotLoads.WithLabelValues("source", "hit").Inc()
		return Snapshot{Scope: scope, Listings: e.listings, Meta: e.meta, Layer: "source"}, nil
	}

	if old, ok := l.memory(scope); ok {
		l.log.Warn("serving expired snapshot", zap.String("scope", scope), zap.Error(err))
		metrics.SnapshotLoads.WithLabelValues("expired", "hit").Inc()
		return Snapshot{Scope: scope, Listings: old.listings, Meta: old.meta, Stale: true, Layer: "expired"}, nil
	}
	metrics.SnapshotLoads.WithLabelValues("source", "error").Inc()
	return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, scope, err)
}

func (l *Loader) fromRedis(ctx context.Context, scope string) (Snapshot, bool) {
	if l.redis == nil {
		return Snapshot{}, false
	}
	b, err := l.redis.Get(ctx, l.cfg.KeyPrefix+scope)
	if err != nil {
		if !redisx.IsMiss(err) {
			l.log.Warn("redis read failed", zap.String("scope", scope), zap.Error(err))
			metrics.SnapshotLoads.WithLabelValues("redis", "error").Inc()
		} else {
			metrics.SnapshotLoads.WithLabelValues("redis", "miss").Inc()
		}
		return Snapshot{}, false
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		l.log.Warn("discarding unreadable cached snapshot", zap.String("scope", scope), zap.Error(err))
		metrics.SnapshotLoads.WithLabelValues("redis", "error").Inc()
		return Snapshot{}, false
	}
	if env.Listings == nil {
		env.Listings = []catalog.Listing{}
	}
	l.store(scope, entry{listings: env.Listings, meta: env.Meta})

	stale := l.now().After(env.Meta.StaleAfter)
	if stale {
		l.enqueue(scope)
	}
	metrics.SnapshotLoads.WithLabelValues("redis", "hit").Inc()
	return Snapshot{Scope: scope, Listings: env.Listings, Meta: env.Meta, Stale: stale, Layer: "redis"}, true
}

// Refresh reloads scope from the source and reports how many listings it
// holds. It returns ErrLocked when another instance holds the refresh lock.
func (l *Loader) Refresh(ctx context.Context, city string) (int, error) {
	scope := Scope(city)
	if l.redis != nil {
		lockKey := l.cfg.KeyPrefix + "lock:" + scope
		ok, err := l.redis.SetNX(ctx, lockKey, l.origin, l.cfg.LockTTL)
		if err != nil {
			l.log.Warn("refresh lock unavailable, refreshing anyway", zap.String("scope", scope), zap.Error(err))
		} else if !ok {
			metrics.SnapshotRefreshes.WithLabelValues("locked").Inc()
			return 0, ErrLocked
		} else {
			defer func() { _ = l.redis.Del(context.WithoutCancel(ctx), lockKey) }()
		}
	}
	e, err := l.fetch(ctx, scope)
	if err != nil {
		return 0, err
	}
	return len(e.listings), nil
}

// fetch loads scope from the source and publishes it to memory, Redis and
// other instances.
func (l *Loader) fetch(ctx context.Context, scope string) (entry, error) {
	listings, err := l.src.FetchListings(ctx, sourceCity(scope))
	if err != nil {
		metrics.SnapshotRefreshes.WithLabelValues("error").Inc()
		return entry{}, fmt.Errorf("fetch %s from %s: %w", scope, l.src.Name(), err)
	}
	if listings == nil {
		listings = []catalog.Listing{}
	}
	now := l.now()
	e := entry{
		listings: listings,
		meta: Meta{
			FetchedAt:  now,
			StaleAfter: now.Add(l.cfg.StaleAfter),
			Source:     l.src.Name(),
		},
	}
	l.store(scope, e)

	if l.redis != nil {
		b, err := json.Marshal(envelope{Listings: e.listings, Meta: e.meta})
		if err == nil {
			err = l.redis.Set(ctx, l.cfg.KeyPrefix+scope, b, l.cfg.CacheTTL)
		}
		if err != nil {
			l.log.Warn("redis write failed", zap.String("scope", scope), zap.Error(err))
		}
	}
	if l.pub != nil {
		l.pub.PublishSnapshotRefreshed(ctx, events.SnapshotRefreshed{
			Scope:  scope,
			Count:  len(listings),
			Origin: l.origin,
			At:     now,
		})
	}
	metrics.SnapshotRefreshes.WithLabelValues("ok").Inc()
	l.log.Debug("snapshot refreshed", zap.String("scope", scope), zap.Int("count", len(listings)))
	return e, nil
}

// Run drops in-memory copies refreshed by other instances so the next read
// picks the new copy up from Redis. It returns when ctx is done.
func (l *Loader) Run(ctx context.Context) {
	if l.pub == nil {
		return
	}
	sub := l.pub.SubscribeSnapshotRefreshed()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			if evt.Origin == l.origin {
				continue
			}
			l.forget(evt.Scope)
			l.log.Debug("snapshot invalidated by peer", zap.String("scope", evt.Scope), zap.String("origin", evt.Origin))
		}
	}
}

func (l *Loader) enqueue(scope string) {
	if l.refresher.Enqueue(refresh.Job{Scope: scope}) {
		l.log.Debug("refresh queued", zap.String("scope", scope))
	}
}

func (l *Loader) memory(scope string) (entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.mem[scope]
	return e, ok
}

func (l *Loader) store(scope string, e entry) {
	l.mu.Lock()
	l.mem[scope] = e
	l.mu.Unlock()
}

func (l *Loader) forget(scope string) {
	l.mu.Lock()
	delete(l.mem, scope)
	l.mu.Unlock()
}
