package upstream

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/catalog-api/internal/canon"
	"github.com/yourorg/catalog-api/internal/catalog"
)

// MapListings converts a listings payload into catalogue listings,
// normalising names, images and numeric fields on the way in.
func MapListings(raw []byte) ([]catalog.Listing, error) {
	var rows []wireListing
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	out := make([]catalog.Listing, 0, len(rows))
	for _, r := range rows {
		if !r.ID.ok {
			continue
		}
		l := catalog.Listing{
			ID:              int64(r.ID.v),
			Title:           canon.Name(r.Title),
			Type:            canon.Name(r.Type),
			City:            canon.Name(r.City),
			District:        canon.Name(r.District),
			Address:         canon.Name(r.Address),
			Metro:           canon.Name(r.Metro),
			MetroWalk:       firstValid(r.MetroWalk, r.MetroWalkSnake).Int(),
			Price:           r.Price.Int(),
			AuctionPosition: r.Auction.Int(),
			HasParking:      r.HasParking || r.HasParkingSnake,
			MinHours:        firstValid(r.MinHours, r.MinHoursSnake).Int(),
			IsArchived:      r.IsArchived,
			Images:          canon.Images(r.ImageURL),
			LogoURL:         r.LogoURL,
			Phone:           r.Phone,
		}
		l.SetCoordinates(r.Lat.Float(), r.Lng.Float())

		var all []string
		for _, room := range r.Rooms {
			features := canon.Features(room.Features)
			all = append(all, features...)
			l.Rooms = append(l.Rooms, catalog.Room{
				Type:     canon.Name(room.Type),
				Price:    room.Price.Int(),
				MinHours: firstValid(room.MinHours, room.MinHoursSnake).Int(),
				Features: features,
			})
		}
		l.Features = canon.Features(all)

		for _, st := range r.MetroStations {
			name := canon.Name(st.Name)
			if name == "" {
				continue
			}
			l.MetroStations = append(l.MetroStations, catalog.MetroStation{
				Name:        name,
				WalkMinutes: st.WalkMinutes.Int(),
			})
		}
		out = append(out, l)
	}
	return out, nil
}
