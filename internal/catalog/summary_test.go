package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	archived := listing(9, "Казань", 1, 1)
	archived.IsArchived = true
	snapshot := []Listing{
		listing(1, "Москва", 1, 3000),
		listing(2, "Казань", 1, 500),
		listing(3, "Москва", 2, 1000),
		listing(4, "Москва", 3, 2000),
		archived,
	}

	got := Summarize(snapshot)
	assert.Equal(t, []CitySummary{
		{City: "Казань", Count: 1, MinPrice: 500, MedianPrice: 500},
		{City: "Москва", Count: 3, MinPrice: 1000, MedianPrice: 2000},
	}, got)
	assert.Empty(t, Summarize(nil))
}

func TestSummarizeEvenCountMedian(t *testing.T) {
	got := Summarize([]Listing{
		listing(1, "Казань", 1, 1000),
		listing(2, "Казань", 2, 3000),
		listing(3, "Сочи", 1, 900),
		listing(4, "Сочи", 2, 1500),
		listing(5, "Сочи", 3, 700),
		listing(6, "Сочи", 4, 2500),
	})
	assert.Equal(t, []CitySummary{
		{City: "Казань", Count: 2, MinPrice: 1000, MedianPrice: 2000},
		{City: "Сочи", Count: 4, MinPrice: 700, MedianPrice: 1200},
	}, got)
}
