package catalog

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// EarthRadiusKm is the mean Earth radius used for great-circle distances.
	EarthRadiusKm = 6371.0
	// DefaultRadiusKm is the "near me" radius.
	DefaultRadiusKm = 10.0

	// orb measures bounds on a slightly larger sphere; pad so the box never
	// cuts off a point the exact distance check would keep.
	boundPad = 1.1
)

// DistanceKm returns the haversine distance in kilometres between two points
// given in degrees.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	dφ := (lat2 - lat1) * math.Pi / 180
	dλ := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Origin builds a viewer position. ok is false for invalid coordinates.
func Origin(lat, lng float64) (orb.Point, bool) {
	if !validLatLng(lat, lng) {
		return orb.Point{}, false
	}
	return orb.Point{lng, lat}, true
}

// prefilter returns a lat/lng box around origin that contains every point
// within radiusKm. ok is false near the poles or across the antimeridian,
// where a plain box is not a safe superset.
func prefilter(origin orb.Point, radiusKm float64) (orb.Bound, bool) {
	if math.Abs(origin.Lat()) > 85 {
		return orb.Bound{}, false
	}
	b := geo.NewBoundAroundPoint(origin, radiusKm*1000*boundPad)
	if b.Min.Lon() < -180 || b.Max.Lon() > 180 || b.Min.Lat() < -90 || b.Max.Lat() > 90 {
		return orb.Bound{}, false
	}
	return b, true
}
