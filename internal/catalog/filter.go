package catalog

import (
	"strings"

	"github.com/paulmach/orb"

	"github.com/yourorg/catalog-api/internal/canon"
)

// AllCities is the city value the UI sends for "no city filter".
const AllCities = "Все города"

// Criteria is the set of filters a catalogue query applies. Zero values
// disable a filter.
type Criteria struct {
	City        string
	Type        string
	ParkingOnly bool
	// MinHours keeps listings whose minimum booking is at most this many hours.
	MinHours *int
	MaxPrice *int
	Text     string
	Features []string

	// Origin is the viewer position ([lng, lat]). When set, every listing with
	// valid coordinates is annotated with its distance.
	Origin *orb.Point
	// Proximity restricts results to RadiusKm around Origin.
	Proximity bool
	RadiusKm  float64
}

// IsAllCities reports whether city is one of the "no city filter" sentinels.
func IsAllCities(city string) bool {
	city = strings.TrimSpace(city)
	return city == "" || city == AllCities || strings.EqualFold(city, "all")
}

func isAllTypes(t string) bool {
	t = strings.TrimSpace(t)
	return t == "" || strings.EqualFold(t, "all")
}

// ProximityActive reports whether the radius filter will run: it needs both
// the toggle and a viewer position.
func (c Criteria) ProximityActive() bool {
	return c.Proximity && c.Origin != nil && validLatLng(c.Origin.Lat(), c.Origin.Lon())
}

func (c Criteria) radius() float64 {
	if c.RadiusKm > 0 {
		return c.RadiusKm
	}
	return DefaultRadiusKm
}

// Filter returns the non-archived listings matching every active criterion,
// in snapshot order. The input is not modified.
func Filter(listings []Listing, c Criteria) []Item {
	city := canon.Name(c.City)
	allCities := IsAllCities(city)
	typ := strings.TrimSpace(c.Type)
	allTypes := isAllTypes(typ)
	text := canon.Text(c.Text)
	features := canon.Features(c.Features)

	var origin orb.Point
	hasOrigin := c.Origin != nil && validLatLng(c.Origin.Lat(), c.Origin.Lon())
	if hasOrigin {
		origin = *c.Origin
	}
	proximity := c.ProximityActive()
	radius := c.radius()
	var box orb.Bound
	useBox := false
	if proximity {
		box, useBox = prefilter(origin, radius)
	}

	out := make([]Item, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		if l.IsArchived {
			continue
		}
		if !allCities && l.City != city {
			continue
		}
		if !allTypes && l.Type != typ {
			continue
		}
		if c.ParkingOnly && !l.HasParking {
			continue
		}
		if c.MinHours != nil && l.MinHours > *c.MinHours {
			continue
		}
		if c.MaxPrice != nil && l.Price > *c.MaxPrice {
			continue
		}

		it := Item{Listing: *l}
		if hasOrigin {
			lat, lng, ok := l.Coordinates()
			switch {
			case ok && proximity && useBox && !box.Contains(orb.Point{lng, lat}):
				continue
			case ok:
				d := DistanceKm(origin.Lat(), origin.Lon(), lat, lng)
				if proximity && d > radius {
					continue
				}
				it.DistanceKm = &d
			case proximity:
				continue
			}
		}

		if text != "" && !matchesText(l, text) {
			continue
		}
		if len(features) > 0 && !anyRoomHasAll(l.Rooms, features) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func matchesText(l *Listing, q string) bool {
	fields := []string{l.Title, l.City, l.Metro, l.District, l.Address}
	for _, f := range fields {
		if strings.Contains(canon.Text(f), q) {
			return true
		}
	}
	for _, st := range l.MetroStations {
		if strings.Contains(canon.Text(st.Name), q) {
			return true
		}
	}
	return false
}

func anyRoomHasAll(rooms []Room, features []string) bool {
	for _, r := range rooms {
		if r.HasAll(features) {
			return true
		}
	}
	return false
}
