package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yourorg/catalog-api/internal/geoip"
)

type GeoDeps struct {
	GeoIP  Locator
	Logger *zap.Logger
}

// RegisterGeo serves caller city detection. Lookup failures are reported as
// "not detected", never as errors.
func RegisterGeo(r chi.Router, d GeoDeps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r.Get("/v1/geo/detect", func(w http.ResponseWriter, req *http.Request) {
		ip := clientIP(req)
		loc := geoip.Location{IP: ip}
		if d.GeoIP != nil {
			found, err := d.GeoIP.Lookup(req.Context(), ip)
			if err != nil {
				d.Logger.Warn("geoip lookup failed", zap.String("ip", ip), zap.Error(err))
			} else {
				loc = found
			}
		}
		render.JSON(w, req, loc)
	})
}
