// internal/feed/assembler/paginator.go
package assembler

import "marketfeed/internal/models"

// Paginator slices the processed superset into fixed-size pages. Because the
// sources over-fetch, the superset usually holds more than one page and later
// pages can be served without another round trip.
type Paginator struct {
	PageSize int
}

// Page returns the zero-based page along with whether more pages may exist.
// HasMore is true only when the returned page is full and listings remain
// past it.
func (p Paginator) Page(listings []models.MarketplaceListing, page int) ([]models.MarketplaceListing, bool) {
	if p.PageSize <= 0 || page < 0 {
		return []models.MarketplaceListing{}, false
	}

	start := page * p.PageSize
	if start >= len(listings) {
		return []models.MarketplaceListing{}, false
	}

	end := start + p.PageSize
	if end > len(listings) {
		end = len(listings)
	}

	out := make([]models.MarketplaceListing, end-start)
	copy(out, listings[start:end])

	hasMore := end-start == p.PageSize && end < len(listings)
	return out, hasMore
}
