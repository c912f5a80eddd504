package catalog

import "strings"

type ViewMode string

const (
	// ViewAuto picks the carousel for "all cities" and the list otherwise.
	ViewAuto     ViewMode = "auto"
	ViewCarousel ViewMode = "carousel"
	ViewList     ViewMode = "list"
)

func ParseViewMode(s string) ViewMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "carousel":
		return ViewCarousel
	case "list":
		return ViewList
	default:
		return ViewAuto
	}
}

// Query is a full catalogue request: filters plus presentation.
type Query struct {
	Criteria
	Sort     SortMode
	View     ViewMode
	Page     int
	PageSize int
}

// Result is either a carousel (Groups) or a page of the flat list (Page).
type Result struct {
	View   ViewMode    `json:"view"`
	Sort   SortMode    `json:"sort"`
	Total  int         `json:"total"`
	Groups []CityGroup `json:"groups,omitempty"`
	Page   *Page[Item] `json:"page,omitempty"`
}

// Service runs queries against an in-memory snapshot. It holds only
// configuration and is safe for concurrent use.
type Service struct {
	pageSize     int
	maxPageSize  int
	carouselSize int
	radiusKm     float64
}

type Option func(*Service)

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxPageSize caps the page size a caller may request.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

func WithCarouselSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.carouselSize = n
		}
	}
}

func WithRadiusKm(km float64) Option {
	return func(s *Service) {
		if km > 0 {
			s.radiusKm = km
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		pageSize:     DefaultPageSize,
		maxPageSize:  100,
		carouselSize: DefaultCarouselSize,
		radiusKm:     DefaultRadiusKm,
	}
	for _, o := range opts {
		o(s)
	}
	if s.maxPageSize < s.pageSize {
		s.maxPageSize = s.pageSize
	}
	return s
}

// Query filters, ranks and lays out the snapshot. The snapshot is read only.
func (s *Service) Query(snapshot []Listing, q Query) Result {
	items, mode := s.prepare(snapshot, q)

	view := q.View
	if view != ViewCarousel && view != ViewList {
		view = ViewList
		if IsAllCities(q.City) {
			view = ViewCarousel
		}
	}

	res := Result{View: view, Sort: mode, Total: len(items)}
	if view == ViewCarousel {
		res.Groups = GroupByCity(items).Carousel(s.carouselSize)
		return res
	}
	p := Paginate(items, q.Page, s.size(q.PageSize))
	res.Page = &p
	return res
}

// CityPage is the "show all" expansion of one carousel row: the query
// restricted to city, as a paginated list.
func (s *Service) CityPage(snapshot []Listing, q Query, city string) Page[Item] {
	q.City = city
	items, _ := s.prepare(snapshot, q)
	return Paginate(items, q.Page, s.size(q.PageSize))
}

// prepare filters and ranks the snapshot and stamps every item with its
// position in its city. Positions always follow auction order, whatever the
// display sort.
func (s *Service) prepare(snapshot []Listing, q Query) ([]Item, SortMode) {
	c := q.Criteria
	if c.RadiusKm <= 0 {
		c.RadiusKm = s.radiusKm
	}
	filtered := Filter(snapshot, c)

	byAuction := append([]Item(nil), filtered...)
	Rank(byAuction, SortAuction)
	positions := GroupByCity(byAuction)

	mode := q.Sort
	switch mode {
	case SortPriceAsc, SortPriceDesc:
	case SortDistance:
		if !c.ProximityActive() {
			mode = SortAuction
		}
	default:
		mode = SortAuction
	}

	ranked := byAuction
	if mode != SortAuction {
		ranked = filtered
		Rank(ranked, mode)
	}
	for i := range ranked {
		ranked[i].PositionInCity, _ = positions.Rank(ranked[i].ID)
	}
	return ranked, mode
}

func (s *Service) size(requested int) int {
	switch {
	case requested <= 0:
		return s.pageSize
	case requested > s.maxPageSize:
		return s.maxPageSize
	default:
		return requested
	}
}
