package hydrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/snapshot"
)

type fakeRefresher struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	hook  func()
}

func (f *fakeRefresher) Refresh(ctx context.Context, city string) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, city)
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := f.fail[city]; err != nil {
		return 0, err
	}
	return 3, nil
}

func (f *fakeRefresher) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestRunOnceWarmsAllScopes(t *testing.T) {
	r := &fakeRefresher{fail: map[string]error{"Казань": errors.New("timeout")}}
	job := &BulkJob{
		Refresher: r,
		Logger:    zaptest.NewLogger(t),
		Config:    BulkConfig{Cities: []string{"Москва", " Казань", "Москва", "all", ""}},
	}

	err := job.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope Казань: timeout")
	assert.Equal(t, []string{catalog.AllCities, "Москва", "Казань"}, r.snapshot())
}

func TestRunOnceSkipsLockedScopes(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := &fakeRefresher{fail: map[string]error{"Москва": snapshot.ErrLocked}}
	job := &BulkJob{
		Refresher: r,
		Logger:    zap.New(core),
		Config:    BulkConfig{Cities: []string{"Москва", "Казань"}},
	}

	require.NoError(t, job.RunOnce(context.Background()))
	assert.Equal(t, []string{catalog.AllCities, "Москва", "Казань"}, r.snapshot())

	skipped := logs.FilterMessage("snapshot skipped, locked by another instance").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, "Москва", skipped[0].ContextMap()["scope"])

	warmed := logs.FilterMessage("snapshot warmed").All()
	require.Len(t, warmed, 2)
	for _, e := range warmed {
		assert.NotEqual(t, "Москва", e.ContextMap()["scope"])
	}
}

func TestRunOnceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRefresher{hook: cancel}
	job := &BulkJob{
		Refresher: r,
		Config: BulkConfig{
			Cities:               []string{"Москва", "Казань"},
			PauseBetweenRequests: time.Hour,
		},
	}

	err := job.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, r.snapshot(), 1)
}

func TestRunRepeatsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := &fakeRefresher{}
	job := &BulkJob{Refresher: r, Config: BulkConfig{Interval: 20 * time.Millisecond}}

	done := make(chan error, 1)
	go func() { done <- job.Run(ctx) }()

	require.Eventually(t, func() bool { return len(r.snapshot()) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestValidate(t *testing.T) {
	var nilJob *BulkJob
	assert.Error(t, nilJob.RunOnce(context.Background()))
	assert.Error(t, (&BulkJob{}).RunOnce(context.Background()))
}
