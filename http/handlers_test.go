package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/catalog"
	"github.com/yourorg/catalog-api/internal/geoip"
	"github.com/yourorg/catalog-api/internal/snapshot"
)

type fakeSnapshots struct {
	listings []catalog.Listing
	err      error
	scopes   []string
}

func (f *fakeSnapshots) Get(_ context.Context, city string) (snapshot.Snapshot, error) {
	f.scopes = append(f.scopes, city)
	if f.err != nil {
		return snapshot.Snapshot{}, f.err
	}
	return snapshot.Snapshot{Scope: snapshot.Scope(city), Listings: f.listings}, nil
}

type fakeLocator struct {
	loc geoip.Location
	err error
}

func (f fakeLocator) Lookup(_ context.Context, ip string) (geoip.Location, error) {
	if f.err != nil {
		return geoip.Location{IP: ip}, f.err
	}
	loc := f.loc
	loc.IP = ip
	return loc, nil
}

func ptr[T any](v T) *T { return &v }

func testListings() []catalog.Listing {
	return []catalog.Listing{
		{ID: 1, Title: "Лофт", Type: "apartment", City: "Москва", Price: 2500, AuctionPosition: 2, MinHours: 2,
			Lat: ptr(55.75), Lng: ptr(37.61), Rooms: []catalog.Room{{Features: []string{"WiFi", "Джакузи"}}}},
		{ID: 2, Title: "Студия", Type: "apartment", City: "Москва", Price: 1500, AuctionPosition: 1, MinHours: 1,
			Lat: ptr(55.80), Lng: ptr(37.70), Rooms: []catalog.Room{{Features: []string{"WiFi"}}}},
		{ID: 3, Title: "Номер", Type: "hotel", City: "Казань", Price: 500, AuctionPosition: 2, MinHours: 3},
		{ID: 4, Title: "Номер", Type: "hotel", City: "Казань", Price: 300, AuctionPosition: 1, MinHours: 1},
		{ID: 5, Title: "Архив", Type: "hotel", City: "Казань", Price: 100, AuctionPosition: 0, IsArchived: true},
	}
}

func newRouter(snaps SnapshotProvider, loc Locator) http.Handler {
	r := chi.NewRouter()
	deps := CatalogDeps{
		Snapshots: snaps,
		Service:   catalog.NewService(),
		GeoIP:     loc,
		Logger:    zap.NewNop(),
	}
	RegisterCatalog(r, deps)
	RegisterCities(r, deps)
	RegisterGeo(r, GeoDeps{GeoIP: loc})
	return r
}

type catalogBody struct {
	OK     bool                        `json:"ok"`
	View   string                      `json:"view"`
	Sort   string                      `json:"sort"`
	Total  int                         `json:"total"`
	Groups []catalog.CityGroup         `json:"groups"`
	Page   *catalog.Page[catalog.Item] `json:"page"`
	Error  string                      `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, catalogBody) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out catalogBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func itemIDs(items []catalog.Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestCatalogCarouselForAllCities(t *testing.T) {
	h := newRouter(&fakeSnapshots{listings: testListings()}, nil)

	rec, body := do(t, h, http.MethodGet, "/v1/catalog?city="+url.QueryEscape(catalog.AllCities), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.OK)
	assert.Equal(t, "carousel", body.View)
	assert.Equal(t, 4, body.Total)
	require.Len(t, body.Groups, 2)
	assert.Equal(t, "Казань", body.Groups[0].City)
	assert.Equal(t, []int64{4, 3}, itemIDs(body.Groups[0].Listings))
	assert.Equal(t, 1, body.Groups[0].Listings[0].PositionInCity)
	assert.Nil(t, body.Page)
}

func TestCatalogListFilters(t *testing.T) {
	h := newRouter(&fakeSnapshots{listings: testListings()}, nil)

	tests := []struct {
		name  string
		query string
		want  []int64
	}{
		{"city", "city=" + url.QueryEscape("Казань"), []int64{4, 3}},
		{"price sort", "city=" + url.QueryEscape("Москва") + "&sort=price-desc", []int64{1, 2}},
		{"min hours ceiling", "view=list&min_hours=1", []int64{4, 2}},
		{"max price", "view=list&max_price=1500&sort=price-asc", []int64{4, 3, 2}},
		{"features", "view=list&feature=WiFi,%D0%94%D0%B6%D0%B0%D0%BA%D1%83%D0%B7%D0%B8", []int64{1}},
		{"type", "view=list&type=hotel", []int64{4, 3}},
		{"text", "view=list&q=" + url.QueryEscape("студ"), []int64{2}},
		{"near", "view=list&near=1&lat=55.75&lng=37.61&sort=distance", []int64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, "/v1/catalog?"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "list", body.View)
			require.NotNil(t, body.Page)
			assert.Equal(t, tt.want, itemIDs(body.Page.Items))
		})
	}
}

func TestCatalogPost(t *testing.T) {
	h := newRouter(&fakeSnapshots{listings: testListings()}, nil)

	rec, body := do(t, h, http.MethodPost, "/v1/catalog", `{"city":"Москва","features":["Джакузи"],"page":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, body.Page)
	assert.Equal(t, 1, body.Page.CurrentPage)
	assert.Equal(t, []int64{1}, itemIDs(body.Page.Items))
	assert.Equal(t, 2, body.Page.Items[0].PositionInCity)
}

func TestCatalogBadInput(t *testing.T) {
	h := newRouter(&fakeSnapshots{listings: testListings()}, nil)

	rec, body := do(t, h, http.MethodGet, "/v1/catalog?min_hours=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_param", body.Error)

	rec, body = do(t, h, http.MethodGet, "/v1/catalog?near=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_param", body.Error)

	rec, body = do(t, h, http.MethodPost, "/v1/catalog", `{"city":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", body.Error)
}

func TestCatalogSnapshotUnavailable(t *testing.T) {
	h := newRouter(&fakeSnapshots{err: snapshot.ErrUnavailable}, nil)
	rec, body := do(t, h, http.MethodGet, "/v1/catalog", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "snapshot_unavailable", body.Error)

	h = newRouter(&fakeSnapshots{err: errors.New("boom")}, nil)
	rec, _ = do(t, h, http.MethodGet, "/v1/catalog", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCatalogNearUsesGeoIP(t *testing.T) {
	snaps := &fakeSnapshots{listings: testListings()}
	h := newRouter(snaps, fakeLocator{loc: geoip.Location{City: "Москва", Lat: ptr(55.80), Lng: ptr(37.70), Detected: true}})

	_, body := do(t, h, http.MethodGet, "/v1/catalog?view=list&near=1&sort=distance", "")
	require.NotNil(t, body.Page)
	assert.Equal(t, "distance", body.Sort)
	assert.Equal(t, []int64{2, 1}, itemIDs(body.Page.Items))
	require.NotNil(t, body.Page.Items[0].DistanceKm)
	assert.InDelta(t, 0, *body.Page.Items[0].DistanceKm, 1e-9)

	h = newRouter(snaps, fakeLocator{err: geoip.ErrRateLimited})
	_, body = do(t, h, http.MethodGet, "/v1/catalog?view=list&near=1&sort=distance", "")
	assert.Equal(t, "auction", body.Sort)
	assert.Equal(t, 4, body.Total)
}

func TestCityPageExpansion(t *testing.T) {
	snaps := &fakeSnapshots{listings: testListings()}
	h := newRouter(snaps, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/cities/"+url.PathEscape("Казань")+"?page_size=1&page=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		City  string                     `json:"city"`
		Total int                        `json:"total"`
		Page  catalog.Page[catalog.Item] `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Казань", body.City)
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.Page.TotalPages)
	assert.Equal(t, []int64{3}, itemIDs(body.Page.Items))
	assert.Equal(t, []string{catalog.AllCities}, snaps.scopes)

	rec, _ = do(t, h, http.MethodGet, "/v1/catalog/cities/all", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPerCitySnapshots(t *testing.T) {
	snaps := &fakeSnapshots{listings: testListings()}
	r := chi.NewRouter()
	RegisterCatalog(r, CatalogDeps{Snapshots: snaps, Service: catalog.NewService(), PerCity: true})

	do(t, r, http.MethodGet, "/v1/catalog?city="+url.QueryEscape("Казань"), "")
	do(t, r, http.MethodGet, "/v1/catalog", "")
	assert.Equal(t, []string{"Казань", catalog.AllCities}, snaps.scopes)
}

func TestCities(t *testing.T) {
	h := newRouter(&fakeSnapshots{listings: testListings()}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/cities", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                   `json:"count"`
		Cities []catalog.CitySummary `json:"cities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "Казань", body.Cities[0].City)
	assert.Equal(t, 2, body.Cities[0].Count)
	assert.Equal(t, 300, body.Cities[0].MinPrice)
	assert.Equal(t, "Москва", body.Cities[1].City)
}

func TestGeoDetect(t *testing.T) {
	h := newRouter(&fakeSnapshots{}, fakeLocator{loc: geoip.Location{City: "Казань", Detected: true}})
	req := httptest.NewRequest(http.MethodGet, "/v1/geo/detect", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var loc geoip.Location
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.True(t, loc.Detected)
	assert.Equal(t, "Казань", loc.City)
	assert.Equal(t, "192.0.2.1", loc.IP)

	h = newRouter(&fakeSnapshots{}, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/geo/detect", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loc))
	assert.False(t, loc.Detected)
}
