// internal/models/filters_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceParsing(t *testing.T) {
	tests := []struct {
		name     string
		priceMin string
		wantVal  float64
		wantOK   bool
	}{
		{name: "unset", priceMin: "", wantVal: 0, wantOK: false},
		{name: "valid integer", priceMin: "50", wantVal: 50, wantOK: true},
		{name: "valid decimal", priceMin: "49.99", wantVal: 49.99, wantOK: true},
		{name: "malformed", priceMin: "abc", wantVal: 0, wantOK: false},
		{name: "negative", priceMin: "-10", wantVal: 0, wantOK: false},
		{name: "zero", priceMin: "0", wantVal: 0, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FilterOptions{PriceMin: tt.priceMin}
			val, ok := f.PriceMinValue()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantVal, val)
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, DefaultFilters().IsEmpty(), "defaults must count as empty")

	withSort := DefaultFilters()
	withSort.SortBy = SortPriceLow
	assert.True(t, withSort.IsEmpty(), "sort order alone must not make filters active")

	withCategory := DefaultFilters()
	withCategory.CategoryIDs = []string{"cat-1"}
	assert.False(t, withCategory.IsEmpty())

	withRating := DefaultFilters()
	withRating.MinRating = 4
	assert.False(t, withRating.IsEmpty())
}

func TestClear(t *testing.T) {
	f := FilterOptions{
		CategoryIDs: []string{"a"},
		PriceMin:    "10",
		PriceMax:    "100",
		MinRating:   4,
		ListingType: ListingTypeJob,
	}

	f.Clear("price")
	assert.Empty(t, f.PriceMin)
	assert.Empty(t, f.PriceMax)
	assert.Equal(t, []string{"a"}, f.CategoryIDs, "other fields must survive")

	f.Clear("listing_type")
	assert.Equal(t, ListingTypeAll, f.ListingType)

	f.Reset()
	assert.True(t, f.IsEmpty())
	assert.Equal(t, SortRelevance, f.SortBy)
}
