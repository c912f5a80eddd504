package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/catalog-api/internal/canon"
	"github.com/yourorg/catalog-api/internal/catalog"
)

type Store struct{ DB *sql.DB }

func Open(dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id                BIGSERIAL PRIMARY KEY,
		title             TEXT NOT NULL,
		type              TEXT NOT NULL,
		city              TEXT NOT NULL,
		district          TEXT,
		address           TEXT,
		price             INTEGER NOT NULL DEFAULT 0,
		auction           INTEGER NOT NULL DEFAULT 0,
		image_url         TEXT,
		logo_url          TEXT,
		metro             TEXT,
		metro_walk        INTEGER,
		has_parking       BOOLEAN NOT NULL DEFAULT false,
		lat               DOUBLE PRECISION,
		lng               DOUBLE PRECISION,
		min_hours         INTEGER NOT NULL DEFAULT 1,
		phone             TEXT,
		is_archived       BOOLEAN NOT NULL DEFAULT false,
		moderation_status TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_listings_city_auction ON listings(city, auction, id);`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id         BIGSERIAL PRIMARY KEY,
		listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		type       TEXT NOT NULL,
		price      INTEGER NOT NULL DEFAULT 0,
		min_hours  INTEGER NOT NULL DEFAULT 1,
		features   JSONB NOT NULL DEFAULT '[]'
	);`,
	`CREATE INDEX IF NOT EXISTS idx_rooms_listing ON rooms(listing_id);`,
	`CREATE TABLE IF NOT EXISTS listing_metro_stations (
		id           BIGSERIAL PRIMARY KEY,
		listing_id   BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
		station_name TEXT NOT NULL,
		walk_minutes INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_metro_listing ON listing_metro_stations(listing_id);`,
}

// Migrate creates the development schema.
func (s *Store) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// published restricts to rows the public catalogue may show. $1 is the city,
// empty for every city.
const published = `l.is_archived = false
	AND (l.moderation_status IS NULL OR l.moderation_status = 'approved')
	AND ($1 = '' OR l.city = $1)`

const listingsQuery = `
	SELECT l.id, l.title, l.type, l.city, COALESCE(l.district, ''), COALESCE(l.address, ''),
		l.price, l.auction, COALESCE(l.image_url, ''), COALESCE(l.logo_url, ''),
		COALESCE(l.metro, ''), COALESCE(l.metro_walk, 0), l.has_parking,
		l.lat, l.lng, l.min_hours, COALESCE(l.phone, '')
	FROM listings l
	WHERE ` + published + `
	ORDER BY l.city ASC, l.auction ASC, l.id ASC`

const roomsQuery = `
	SELECT r.listing_id, r.type, r.price, r.min_hours, COALESCE(to_json(r.features)::text, '[]')
	FROM rooms r JOIN listings l ON l.id = r.listing_id
	WHERE ` + published + `
	ORDER BY r.listing_id, r.id`

const stationsQuery = `
	SELECT m.listing_id, m.station_name, m.walk_minutes
	FROM listing_metro_stations m JOIN listings l ON l.id = m.listing_id
	WHERE ` + published + `
	ORDER BY m.listing_id, m.walk_minutes, m.id`

// FetchListings reads the published snapshot for one city, or for every city
// when city is one of the all-cities values.
func (s *Store) FetchListings(ctx context.Context, city string) ([]catalog.Listing, error) {
	if catalog.IsAllCities(city) {
		city = ""
	}
	city = canon.Name(city)

	listings, err := s.listings(ctx, city)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return listings, nil
	}
	idx := make(map[int64]int, len(listings))
	for i, l := range listings {
		idx[l.ID] = i
	}

	var (
		rooms    map[int64][]catalog.Room
		stations map[int64][]catalog.MetroStation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rooms, err = s.rooms(gctx, city)
		return err
	})
	g.Go(func() (err error) {
		stations, err = s.stations(gctx, city)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for id, i := range idx {
		l := &listings[i]
		l.Rooms = rooms[id]
		l.MetroStations = stations[id]
		var all []string
		for _, r := range l.Rooms {
			all = append(all, r.Features...)
		}
		l.Features = canon.Features(all)
	}
	return listings, nil
}

func (s *Store) listings(ctx context.Context, city string) ([]catalog.Listing, error) {
	rows, err := s.DB.QueryContext(ctx, listingsQuery, city)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	out := []catalog.Listing{}
	for rows.Next() {
		var (
			l        catalog.Listing
			imageURL string
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(&l.ID, &l.Title, &l.Type, &l.City, &l.District, &l.Address,
			&l.Price, &l.AuctionPosition, &imageURL, &l.LogoURL,
			&l.Metro, &l.MetroWalk, &l.HasParking,
			&lat, &lng, &l.MinHours, &l.Phone); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.City = canon.Name(l.City)
		l.District = canon.Name(l.District)
		l.Images = canon.Images(imageURL)
		if lat.Valid && lng.Valid {
			l.SetCoordinates(&lat.Float64, &lng.Float64)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) rooms(ctx context.Context, city string) (map[int64][]catalog.Room, error) {
	rows, err := s.DB.QueryContext(ctx, roomsQuery, city)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]catalog.Room)
	for rows.Next() {
		var (
			id       int64
			r        catalog.Room
			features string
		)
		if err := rows.Scan(&id, &r.Type, &r.Price, &r.MinHours, &features); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		var fs []string
		if err := json.Unmarshal([]byte(features), &fs); err != nil {
			return nil, fmt.Errorf("room %d features: %w", id, err)
		}
		r.Features = canon.Features(fs)
		out[id] = append(out[id], r)
	}
	return out, rows.Err()
}

func (s *Store) stations(ctx context.Context, city string) (map[int64][]catalog.MetroStation, error) {
	rows, err := s.DB.QueryContext(ctx, stationsQuery, city)
	if err != nil {
		return nil, fmt.Errorf("query metro stations: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]catalog.MetroStation)
	for rows.Next() {
		var (
			id int64
			m  catalog.MetroStation
		)
		if err := rows.Scan(&id, &m.Name, &m.WalkMinutes); err != nil {
			return nil, fmt.Errorf("scan metro station: %w", err)
		}
		m.Name = canon.Name(m.Name)
		out[id] = append(out[id], m)
	}
	return out, rows.Err()
}
