package catalog

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CitySummary is the city facet: how many listings a city has and what they cost.
type CitySummary struct {
	City        string  `json:"city"`
	Count       int     `json:"count"`
	MinPrice    int     `json:"min_price"`
	MedianPrice float64 `json:"median_price"`
}

// Summarize builds one summary per city over the non-archived listings,
// ordered by city name.
func Summarize(listings []Listing) []CitySummary {
	prices := make(map[string][]float64)
	for i := range listings {
		l := &listings[i]
		if l.IsArchived {
			continue
		}
		prices[l.City] = append(prices[l.City], float64(l.Price))
	}

	out := make([]CitySummary, 0, len(prices))
	for city, ps := range prices {
		sort.Float64s(ps)
		out = append(out, CitySummary{
			City:        city,
			Count:       len(ps),
			MinPrice:    int(ps[0]),
			MedianPrice: median(ps),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].City < out[j].City })
	return out
}

// median expects sorted, non-empty prices; even counts average the middle pair.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return stat.Mean(sorted[mid-1:mid+1], nil)
}
