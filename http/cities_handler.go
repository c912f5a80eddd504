package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/catalog"
)

// RegisterCities serves the city facet of the every-city snapshot.
func RegisterCities(r chi.Router, d CatalogDeps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r.Get("/v1/cities", func(w http.ResponseWriter, req *http.Request) {
		snap, ok := loadSnapshot(w, req, d, catalog.AllCities)
		if !ok {
			return
		}
		cities := catalog.Summarize(snap.Listings)
		render.JSON(w, req, map[string]any{"ok": true, "count": len(cities), "cities": cities})
	})
}
