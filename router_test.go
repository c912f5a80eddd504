package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "github.com/yourorg/catalog-api/http"
	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/logger"
	"github.com/yourorg/catalog-api/internal/snapshot"
)

type staticSnapshots []catalog.Listing

func (s staticSnapshots) Get(_ context.Context, city string) (snapshot.Snapshot, error) {
	return snapshot.Snapshot{Scope: snapshot.Scope(city), Listings: s}, nil
}

func testRouter(perMinute int) http.Handler {
	return BuildRouter(RouterDeps{
		Catalog: httpapi.CatalogDeps{
			Snapshots: staticSnapshots{{ID: 1, City: "Москва", Price: 1000}},
			Service:   catalog.NewService(),
		},
		RequestsPerMinute: perMinute,
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(logger.RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	h := testRouter(10)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_queries_total")
}

func TestCatalogRateLimited(t *testing.T) {
	h := testRouter(1)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRealIPFeedsRateLimit(t *testing.T) {
	h := testRouter(1)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/cities", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}
