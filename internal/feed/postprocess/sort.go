// internal/feed/postprocess/sort.go
package postprocess

import (
	"sort"

	"marketfeed/internal/models"
)

// Sort orders listings according to the requested sort. Ties keep their
// incoming relative order, so repeated sorts of the same input are
// deterministic.
func Sort(listings []models.MarketplaceListing, order models.SortOrder) {
	switch order {
	case models.SortPriceLow:
		sort.SliceStable(listings, func(i, j int) bool {
			return lowPriceKey(listings[i]) < lowPriceKey(listings[j])
		})
	case models.SortPriceHigh:
		sort.SliceStable(listings, func(i, j int) bool {
			return highPriceKey(listings[i]) > highPriceKey(listings[j])
		})
	case models.SortRating:
		sort.SliceStable(listings, func(i, j int) bool {
			return ratingKey(listings[i]) > ratingKey(listings[j])
		})
	case models.SortPopular:
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].ViewCount > listings[j].ViewCount
		})
	case models.SortDistance:
		sort.SliceStable(listings, func(i, j int) bool {
			return distanceKey(listings[i]) < distanceKey(listings[j])
		})
	default:
		// Relevance equals recency; unknown orders degrade the same way.
		sort.SliceStable(listings, func(i, j int) bool {
			return listings[i].CreatedAt.After(listings[j].CreatedAt)
		})
	}
}

// lowPriceKey picks the cheapest defensible price for ascending order:
// services use their base price, jobs fall back from fixed price to the low
// end of their budget, and anything unpriced sorts as zero (first).
func lowPriceKey(l models.MarketplaceListing) float64 {
	if l.Service != nil && l.Service.BasePrice != nil {
		return *l.Service.BasePrice
	}
	if l.Job != nil {
		if l.Job.FixedPrice != nil {
			return *l.Job.FixedPrice
		}
		if l.Job.BudgetMin != nil {
			return *l.Job.BudgetMin
		}
	}
	return 0
}

// highPriceKey mirrors lowPriceKey for descending order, using the high end of
// a job's budget.
func highPriceKey(l models.MarketplaceListing) float64 {
	if l.Service != nil && l.Service.BasePrice != nil {
		return *l.Service.BasePrice
	}
	if l.Job != nil {
		if l.Job.FixedPrice != nil {
			return *l.Job.FixedPrice
		}
		if l.Job.BudgetMax != nil {
			return *l.Job.BudgetMax
		}
	}
	return 0
}

func ratingKey(l models.MarketplaceListing) float64 {
	if l.Owner.Rating == nil {
		return -1
	}
	return *l.Owner.Rating
}

// distanceKey sorts coordinate-less listings behind everything measurable.
func distanceKey(l models.MarketplaceListing) float64 {
	if l.Distance == nil {
		return 1e12
	}
	return *l.Distance
}
