package catalog

// DefaultCarouselSize is how many listings each city row shows before "show all".
const DefaultCarouselSize = 5

// CityGroup is one carousel row.
type CityGroup struct {
	City     string `json:"city"`
	Listings []Item `json:"listings"`
	Total    int    `json:"total"`
	HasMore  bool   `json:"has_more"`
}

// Groups partitions ranked items by city, preserving the incoming order
// inside each city.
type Groups struct {
	cities    []string
	byCity    map[string][]Item
	positions map[int64]int
}

// GroupByCity groups ranked items. Cities are kept in order of first
// appearance. A listing ID seen twice keeps the position of its first
// occurrence.
func GroupByCity(ranked []Item) *Groups {
	g := &Groups{
		byCity:    make(map[string][]Item),
		positions: make(map[int64]int, len(ranked)),
	}
	for _, it := range ranked {
		list, seen := g.byCity[it.City]
		if !seen {
			g.cities = append(g.cities, it.City)
		}
		list = append(list, it)
		g.byCity[it.City] = list
		if _, dup := g.positions[it.ID]; !dup {
			g.positions[it.ID] = len(list)
		}
	}
	return g
}

// Cities returns the city names in order of first appearance.
func (g *Groups) Cities() []string { return g.cities }

// City returns the items of one city in ranked order.
func (g *Groups) City(name string) []Item { return g.byCity[name] }

// Rank returns the 1-based position of a listing inside its city.
func (g *Groups) Rank(id int64) (int, bool) {
	p, ok := g.positions[id]
	return p, ok
}

// Carousel returns one row per city holding at most limit items.
func (g *Groups) Carousel(limit int) []CityGroup {
	if limit <= 0 {
		limit = DefaultCarouselSize
	}
	out := make([]CityGroup, 0, len(g.cities))
	for _, c := range g.cities {
		items := g.byCity[c]
		n := len(items)
		shown := items
		if n > limit {
			shown = items[:limit]
		}
		out = append(out, CityGroup{
			City:     c,
			Listings: append([]Item(nil), shown...),
			Total:    n,
			HasMore:  n > limit,
		})
	}
	return out
}
