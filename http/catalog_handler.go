package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/geoip"
	"github.com/yourorg/catalog-api/internal/metrics"
	"github.com/yourorg/catalog-api/internal/snapshot"
)

type SnapshotProvider interface {
	Get(ctx context.Context, city string) (snapshot.Snapshot, error)
}

type Locator interface {
	Lookup(ctx context.Context, ip string) (geoip.Location, error)
}

type CatalogDeps struct {
	Snapshots SnapshotProvider
	Service   *catalog.Service
	// GeoIP resolves the caller's position for near=1 without coordinates.
	// Optional.
	GeoIP Locator
	// PerCity loads the city's own snapshot for city-filtered queries.
	PerCity bool
	Logger  *zap.Logger
}

type catalogResponse struct {
	OK bool `json:"ok"`
	catalog.Result
	Stale     bool      `json:"stale"`
	FetchedAt time.Time `json:"fetched_at"`
}

func RegisterCatalog(r chi.Router, d CatalogDeps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r.Route("/v1/catalog", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body CatalogRequest
			if !decodeBody(w, req, &body) {
				return
			}
			handleCatalog(w, req, d, body)
		})
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			body, err := parseCatalogQuery(req.URL.Query())
			if err != nil {
				writeError(w, req, http.StatusBadRequest, "invalid_param", err.Error())
				return
			}
			handleCatalog(w, req, d, body)
		})
		r.Get("/cities/{city}", func(w http.ResponseWriter, req *http.Request) {
			city, err := url.PathUnescape(chi.URLParam(req, "city"))
			if err != nil || catalog.IsAllCities(city) {
				writeError(w, req, http.StatusBadRequest, "invalid_param", "city must name a single city")
				return
			}
			body, err := parseCatalogQuery(req.URL.Query())
			if err != nil {
				writeError(w, req, http.StatusBadRequest, "invalid_param", err.Error())
				return
			}
			body.City = city
			handleCityPage(w, req, d, body)
		})
	})
}

func handleCatalog(w http.ResponseWriter, req *http.Request, d CatalogDeps, body CatalogRequest) {
	snap, ok := loadSnapshot(w, req, d, body.City)
	if !ok {
		return
	}
	q := buildQuery(req, d, body)

	start := time.Now()
	res := d.Service.Query(snap.Listings, q)
	view := string(res.View)
	metrics.CatalogQueryDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	metrics.CatalogQueries.WithLabelValues(view).Inc()
	metrics.CatalogResults.WithLabelValues(view).Observe(float64(res.Total))

	render.JSON(w, req, catalogResponse{
		OK:        true,
		Result:    res,
		Stale:     snap.Stale,
		FetchedAt: snap.Meta.FetchedAt,
	})
}

func handleCityPage(w http.ResponseWriter, req *http.Request, d CatalogDeps, body CatalogRequest) {
	snap, ok := loadSnapshot(w, req, d, body.City)
	if !ok {
		return
	}
	q := buildQuery(req, d, body)

	start := time.Now()
	page := d.Service.CityPage(snap.Listings, q, body.City)
	metrics.CatalogQueryDuration.WithLabelValues("city").Observe(time.Since(start).Seconds())
	metrics.CatalogQueries.WithLabelValues("city").Inc()
	metrics.CatalogResults.WithLabelValues("city").Observe(float64(page.TotalItems))

	render.JSON(w, req, map[string]any{
		"ok":         true,
		"city":       body.City,
		"total":      page.TotalItems,
		"page":       page,
		"stale":      snap.Stale,
		"fetched_at": snap.Meta.FetchedAt,
	})
}

func loadSnapshot(w http.ResponseWriter, req *http.Request, d CatalogDeps, city string) (snapshot.Snapshot, bool) {
	scope := catalog.AllCities
	if d.PerCity && !catalog.IsAllCities(city) {
		scope = city
	}
	snap, err := d.Snapshots.Get(req.Context(), scope)
	if err == nil {
		return snap, true
	}
	d.Logger.Error("snapshot load failed", zap.String("city", city), zap.Error(err))
	if errors.Is(err, snapshot.ErrUnavailable) {
		writeError(w, req, http.StatusServiceUnavailable, "snapshot_unavailable", "listings are temporarily unavailable")
	} else {
		writeError(w, req, http.StatusInternalServerError, "internal", err.Error())
	}
	return snapshot.Snapshot{}, false
}

func buildQuery(req *http.Request, d CatalogDeps, body CatalogRequest) catalog.Query {
	q := catalog.Query{
		Criteria: catalog.Criteria{
			City:        body.City,
			Type:        body.Type,
			ParkingOnly: body.Parking,
			MinHours:    body.MinHours,
			MaxPrice:    body.MaxPrice,
			Text:        body.Query,
			Features:    body.Features,
			Proximity:   body.Near,
		},
		Sort:     catalog.ParseSortMode(body.Sort),
		View:     catalog.ParseViewMode(body.View),
		Page:     defInt(body.Page, 1),
		PageSize: defInt(body.PageSize, 0),
	}
	if body.Lat != nil && body.Lng != nil {
		if p, ok := catalog.Origin(*body.Lat, *body.Lng); ok {
			q.Origin = &p
		}
	}
	if q.Origin == nil && body.Near && d.GeoIP != nil {
		q.Origin = locate(req, d)
	}
	return q
}

// locate resolves the caller's position; any failure leaves proximity off.
func locate(req *http.Request, d CatalogDeps) *orb.Point {
	loc, err := d.GeoIP.Lookup(req.Context(), clientIP(req))
	if err != nil {
		d.Logger.Debug("geoip lookup failed", zap.Error(err))
		return nil
	}
	if loc.Lat == nil || loc.Lng == nil {
		return nil
	}
	p, ok := catalog.Origin(*loc.Lat, *loc.Lng)
	if !ok {
		return nil
	}
	d.Logger.Debug("origin from geoip", zap.String("city", loc.City), zap.Float64("lat", *loc.Lat), zap.Float64("lng", *loc.Lng))
	return &p
}
