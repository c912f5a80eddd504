package catalog

// DefaultPageSize is the list-view page size.
const DefaultPageSize = 30

// windowFull is the page count up to which every page gets a link.
const windowFull = 7

type Page[T any] struct {
	Items       []T        `json:"items"`
	CurrentPage int        `json:"current_page"`
	TotalPages  int        `json:"total_pages"`
	PageSize    int        `json:"page_size"`
	TotalItems  int        `json:"total_items"`
	From        int        `json:"from"`
	To          int        `json:"to"`
	Window      []PageLink `json:"window"`
}

// PageLink is one pagination control: either a page number or an ellipsis.
type PageLink struct {
	Page     int  `json:"page,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// Paginate slices items into the requested page. The page is clamped to
// [1, TotalPages] and TotalPages is never below 1. size <= 0 selects
// DefaultPageSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)

	out := make([]T, end-start)
	copy(out, items[start:end])

	p := Page[T]{
		Items:       out,
		CurrentPage: page,
		TotalPages:  pages,
		PageSize:    size,
		TotalItems:  total,
		To:          end,
		Window:      Window(page, pages),
	}
	if total > 0 {
		p.From = start + 1
	}
	return p
}

// Window lists the page controls to render. Up to seven pages are all shown;
// beyond that the first and last page stay visible, with the current page and
// its neighbours in between and ellipses marking the gaps.
func Window(current, total int) []PageLink {
	if total < 1 {
		total = 1
	}
	current = max(1, min(current, total))
	link := func(n int) PageLink { return PageLink{Page: n, Current: n == current} }

	if total <= windowFull {
		out := make([]PageLink, 0, total)
		for n := 1; n <= total; n++ {
			out = append(out, link(n))
		}
		return out
	}

	out := []PageLink{link(1)}
	if current > 3 {
		out = append(out, PageLink{Ellipsis: true})
	}
	for n := max(2, current-1); n <= min(total-1, current+1); n++ {
		out = append(out, link(n))
	}
	if current < total-2 {
		out = append(out, PageLink{Ellipsis: true})
	}
	return append(out, link(total))
}
