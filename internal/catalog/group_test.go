package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPositionsFollowStableAuctionOrder(t *testing.T) {
	var snapshot []Listing
	for i, pos := range []int{3, 1, 2, 1, 5} {
		snapshot = append(snapshot, listing(int64(i+1), "Москва", pos, 100))
	}
	items := Filter(snapshot, Criteria{})
	Rank(items, SortAuction)
	g := GroupByCity(items)

	want := map[int64]int{2: 1, 4: 2, 3: 3, 1: 4, 5: 5}
	for id, pos := range want {
		got, ok := g.Rank(id)
		require.True(t, ok)
		assert.Equal(t, pos, got, "listing %d", id)
	}
	_, ok := g.Rank(42)
	assert.False(t, ok)
}

func TestGroupDuplicateIDKeepsFirstPosition(t *testing.T) {
	items := []Item{
		{Listing: listing(7, "Москва", 1, 0)},
		{Listing: listing(8, "Москва", 2, 0)},
		{Listing: listing(7, "Москва", 3, 0)},
	}
	g := GroupByCity(items)
	pos, _ := g.Rank(7)
	assert.Equal(t, 1, pos)
	assert.Len(t, g.City("Москва"), 3)
}

func TestCarousel(t *testing.T) {
	var snapshot []Listing
	for i := 1; i <= 7; i++ {
		snapshot = append(snapshot, listing(int64(i), "Москва", i, 100))
	}
	snapshot = append(snapshot, listing(100, "Казань", 1, 100))

	items := Filter(snapshot, Criteria{})
	Rank(items, SortAuction)
	rows := GroupByCity(items).Carousel(0)

	require.Len(t, rows, 2)
	assert.Equal(t, "Казань", rows[0].City)
	assert.Equal(t, 1, rows[0].Total)
	assert.False(t, rows[0].HasMore)

	assert.Equal(t, "Москва", rows[1].City)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(rows[1].Listings))
	assert.Equal(t, 7, rows[1].Total)
	assert.True(t, rows[1].HasMore)
}

func TestIsTop(t *testing.T) {
	assert.False(t, Item{}.IsTop())
	assert.True(t, Item{PositionInCity: 1}.IsTop())
	assert.True(t, Item{PositionInCity: 3}.IsTop())
	assert.False(t, Item{PositionInCity: 4}.IsTop())
}
