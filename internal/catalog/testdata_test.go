package catalog

func ptr[T any](v T) *T { return &v }

func listing(id int64, city string, auction, price int) Listing {
	return Listing{
		ID:              id,
		Title:           "Отель",
		Type:            "hotel",
		City:            city,
		Price:           price,
		AuctionPosition: auction,
		MinHours:        1,
	}
}

func at(l Listing, lat, lng float64) Listing {
	l.Lat, l.Lng = ptr(lat), ptr(lng)
	return l
}

func ids(items []Item) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func prices(items []Item) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.Price)
	}
	return out
}
