package catalog

import (
	"sort"
	"strings"
)

type SortMode string

const (
	SortAuction   SortMode = "auction"
	SortPriceAsc  SortMode = "price-asc"
	SortPriceDesc SortMode = "price-desc"
	SortDistance  SortMode = "distance"
)

// ParseSortMode maps a request value onto a sort mode. Unknown or empty
// values fall back to auction order.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price-asc", "price_asc":
		return SortPriceAsc
	case "price-desc", "price_desc":
		return SortPriceDesc
	case "distance":
		return SortDistance
	default:
		return SortAuction
	}
}

// Rank sorts items in place. The sort is stable, so ties keep their filtered
// (snapshot) order. Auction order groups by city name (byte-wise) and then by
// ascending auction position. Distance order puts items without a distance last.
func Rank(items []Item, mode SortMode) {
	switch mode {
	case SortPriceAsc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price < items[j].Price })
	case SortPriceDesc:
		sort.SliceStable(items, func(i, j int) bool { return items[i].Price > items[j].Price })
	case SortDistance:
		sort.SliceStable(items, func(i, j int) bool {
			a, b := items[i].DistanceKm, items[j].DistanceKm
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return *a < *b
			}
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].City != items[j].City {
				return items[i].City < items[j].City
			}
			return items[i].AuctionPosition < items[j].AuctionPosition
		})
	}
}
