package catalog

import "math"

// TopPositions is how many auction slots per city carry the "top" badge.
const TopPositions = 3

// Listing is the read-only projection of a published rental listing.
// Snapshots are shared between concurrent queries and must never be mutated
// once loaded.
type Listing struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	Type            string         `json:"type"`
	City            string         `json:"city"`
	District        string         `json:"district,omitempty"`
	Address         string         `json:"address,omitempty"`
	Metro           string         `json:"metro,omitempty"`
	MetroWalk       int            `json:"metro_walk,omitempty"`
	MetroStations   []MetroStation `json:"metro_stations,omitempty"`
	Price           int            `json:"price"`
	AuctionPosition int            `json:"auction"`
	HasParking      bool           `json:"has_parking"`
	MinHours        int            `json:"min_hours"`
	Features        []string       `json:"features,omitempty"`
	Rooms           []Room         `json:"rooms,omitempty"`
	Lat             *float64       `json:"lat,omitempty"`
	Lng             *float64       `json:"lng,omitempty"`
	IsArchived      bool           `json:"is_archived,omitempty"`
	Images          []string       `json:"images,omitempty"`
	LogoURL         string         `json:"logo_url,omitempty"`
	Phone           string         `json:"phone,omitempty"`
}

type Room struct {
	Type     string   `json:"type"`
	Price    int      `json:"price"`
	MinHours int      `json:"min_hours"`
	Features []string `json:"features,omitempty"`
}

type MetroStation struct {
	Name        string `json:"station_name"`
	WalkMinutes int    `json:"walk_minutes"`
}

// Coordinates reports the listing position. ok is false when either
// coordinate is missing or not a valid latitude/longitude.
func (l *Listing) Coordinates() (lat, lng float64, ok bool) {
	if l.Lat == nil || l.Lng == nil {
		return 0, 0, false
	}
	lat, lng = *l.Lat, *l.Lng
	if !validLatLng(lat, lng) {
		return 0, 0, false
	}
	return lat, lng, true
}

// SetCoordinates stores the position when lat and lng form a valid point and
// clears it otherwise, so a listing never carries a non-finite coordinate.
func (l *Listing) SetCoordinates(lat, lng *float64) {
	if lat == nil || lng == nil || !validLatLng(*lat, *lng) {
		l.Lat, l.Lng = nil, nil
		return
	}
	la, ln := *lat, *lng
	l.Lat, l.Lng = &la, &ln
}

// HasAll reports whether the room offers every requested feature.
func (r Room) HasAll(features []string) bool {
	for _, want := range features {
		found := false
		for _, have := range r.Features {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Item is a listing as returned by a query, annotated with its distance from
// the viewer and its 1-based auction position within its city.
type Item struct {
	Listing
	DistanceKm     *float64 `json:"distance,omitempty"`
	PositionInCity int      `json:"position_in_city,omitempty"`
}

// IsTop reports whether the item holds one of the leading auction slots of its city.
func (it Item) IsTop() bool {
	return it.PositionInCity >= 1 && it.PositionInCity <= TopPositions
}

func validLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
