package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpapi "github.com/yourorg/catalog-api/http"
	"github.com/yourorg/catalog-api/internal/logger"
)

type RouterDeps struct {
	Catalog           httpapi.CatalogDeps
	Geo               httpapi.GeoDeps
	Logger            *zap.Logger
	RequestsPerMinute int
}

func BuildRouter(deps RouterDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(deps.RequestsPerMinute, 1*time.Minute)) // per-client query budget
		r.Use(render.SetContentType(render.ContentTypeJSON))
		httpapi.RegisterCatalog(r, deps.Catalog)
		httpapi.RegisterCities(r, deps.Catalog)
		httpapi.RegisterGeo(r, deps.Geo)
	})
	return r
}
