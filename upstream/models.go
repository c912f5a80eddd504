package upstream

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// flexNumber accepts a JSON number, a numeric string (Decimal columns are
// serialised as text) or null. Unparseable and non-finite values are treated
// as absent.
type flexNumber struct {
	v  float64
	ok bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	*n = flexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
	}
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n.v, n.ok = f, true
	return nil
}

func (n flexNumber) Int() int { return int(n.v) }

func (n flexNumber) Float() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

func firstValid(ns ...flexNumber) flexNumber {
	for _, n := range ns {
		if n.ok {
			return n
		}
	}
	return flexNumber{}
}

// flexList accepts a JSON array of strings or a string holding one.
type flexList []string

func (l *flexList) UnmarshalJSON(b []byte) error {
	*l = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "[") {
			b = []byte(s)
		} else {
			if s != "" {
				*l = flexList{s}
			}
			return nil
		}
	}
	var out []string
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

type wireRoom struct {
	Type          string     `json:"type"`
	Price         flexNumber `json:"price"`
	MinHours      flexNumber `json:"minHours"`
	MinHoursSnake flexNumber `json:"min_hours"`
	Features      flexList   `json:"features"`
}

type wireStation struct {
	Name        string     `json:"station_name"`
	WalkMinutes flexNumber `json:"walk_minutes"`
}

type wireListing struct {
	ID              flexNumber    `json:"id"`
	Title           string        `json:"title"`
	Type            string        `json:"type"`
	City            string        `json:"city"`
	District        string        `json:"district"`
	Address         string        `json:"address"`
	Price           flexNumber    `json:"price"`
	Auction         flexNumber    `json:"auction"`
	ImageURL        string        `json:"image_url"`
	LogoURL         string        `json:"logo_url"`
	Metro           string        `json:"metro"`
	MetroWalk       flexNumber    `json:"metroWalk"`
	MetroWalkSnake  flexNumber    `json:"metro_walk"`
	HasParking      bool          `json:"hasParking"`
	HasParkingSnake bool          `json:"has_parking"`
	Lat             flexNumber    `json:"lat"`
	Lng             flexNumber    `json:"lng"`
	MinHours        flexNumber    `json:"minHours"`
	MinHoursSnake   flexNumber    `json:"min_hours"`
	Phone           string        `json:"phone"`
	IsArchived      bool          `json:"is_archived"`
	Rooms           []wireRoom    `json:"rooms"`
	MetroStations   []wireStation `json:"metro_stations"`
}
