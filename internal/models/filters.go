// internal/models/filters.go
package models

import "strconv"

// SortOrder selects the post-processor sort step.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance" // equals recency
	SortPriceLow  SortOrder = "price_low"
	SortPriceHigh SortOrder = "price_high"
	SortRating    SortOrder = "rating"
	SortPopular   SortOrder = "popular"
	SortRecent    SortOrder = "recent"
	SortDistance  SortOrder = "distance"
)

// ValidSortOrder reports whether s is one of the supported sort orders.
func ValidSortOrder(s SortOrder) bool {
	switch s {
	case SortRelevance, SortPriceLow, SortPriceHigh, SortRating, SortPopular, SortRecent, SortDistance:
		return true
	}
	return false
}

// FilterOptions is the pure-data filter configuration owned by the caller and
// passed to the query builder. Price bounds are string-encoded and parsed on use.
type FilterOptions struct {
	CategoryIDs    []string  `json:"categoryIds,omitempty"`
	Location       string    `json:"location,omitempty"`
	PriceMin       string    `json:"priceMin,omitempty"`
	PriceMax       string    `json:"priceMax,omitempty"`
	MinRating      float64   `json:"minRating,omitempty"`
	Distance       float64   `json:"distance,omitempty"` // search radius in km
	Availability   string    `json:"availability,omitempty"`
	SortBy         SortOrder `json:"sortBy,omitempty"`
	VerifiedOnly   bool      `json:"verifiedOnly,omitempty"`
	InstantBooking bool      `json:"instantBooking,omitempty"`
	ListingType    string    `json:"listingType,omitempty"` // service|custom_service|job|all
}

// DefaultFilters returns the filter set applied on screen mount.
func DefaultFilters() FilterOptions {
	return FilterOptions{SortBy: SortRelevance, ListingType: ListingTypeAll}
}

// IsEmpty reports whether no user-configurable filter is active. Sort order
// alone does not make a filter set active.
func (f FilterOptions) IsEmpty() bool {
	return len(f.CategoryIDs) == 0 &&
		f.Location == "" &&
		f.PriceMin == "" &&
		f.PriceMax == "" &&
		f.MinRating == 0 &&
		f.Distance == 0 &&
		f.Availability == "" &&
		!f.VerifiedOnly &&
		!f.InstantBooking &&
		(f.ListingType == "" || f.ListingType == ListingTypeAll)
}

// PriceMinValue parses the string-encoded lower price bound.
// Returns ok=false when unset or malformed.
func (f FilterOptions) PriceMinValue() (float64, bool) {
	return parsePrice(f.PriceMin)
}

// PriceMaxValue parses the string-encoded upper price bound.
func (f FilterOptions) PriceMaxValue() (float64, bool) {
	return parsePrice(f.PriceMax)
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// Clear removes a single filter field by name, matching the per-field removal
// chips in the filter bar.
func (f *FilterOptions) Clear(field string) {
	switch field {
	case "categories":
		f.CategoryIDs = nil
	case "location":
		f.Location = ""
	case "price":
		f.PriceMin, f.PriceMax = "", ""
	case "rating":
		f.MinRating = 0
	case "distance":
		f.Distance = 0
	case "availability":
		f.Availability = ""
	case "verified":
		f.VerifiedOnly = false
	case "instant_booking":
		f.InstantBooking = false
	case "listing_type":
		f.ListingType = ListingTypeAll
	}
}

// Reset restores defaults, matching "clear all".
func (f *FilterOptions) Reset() {
	*f = DefaultFilters()
}
