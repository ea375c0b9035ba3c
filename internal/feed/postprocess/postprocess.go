// internal/feed/postprocess/postprocess.go
package postprocess

import (
	"time"

	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/geo"
	"marketfeed/internal/models"
)

// Options controls refinement behavior that is deployment policy rather than
// request input.
type Options struct {
	// DropWithoutCoordinates removes coordinate-less listings when a distance
	// filter is active. When false they are kept and sorted to the end under
	// distance ordering.
	DropWithoutCoordinates bool
}

// Apply refines a merged result set in place order: distance attachment,
// distance exclusion, rating exclusion, then sort. The input slice is not
// mutated.
func Apply(listings []models.MarketplaceListing, filters models.FilterOptions, ref *geo.Coordinates, opts Options, log logger.Logger) []models.MarketplaceListing {
	start := time.Now()
	defer func() {
		metrics.FeedStageDuration.WithLabelValues("postprocess").Observe(time.Since(start).Seconds())
	}()

	out := make([]models.MarketplaceListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, l)
	}

	if ref != nil {
		attachDistances(out, *ref)
	}

	if filters.Distance > 0 && ref != nil {
		out = filterByDistance(out, filters.Distance, opts, log)
	}

	if filters.MinRating > 0 {
		out = filterByRating(out, filters.MinRating)
	}

	Sort(out, filters.SortBy)
	return out
}

// attachDistances computes each listing's distance from the reference point.
// Listings without coordinates keep a nil distance.
func attachDistances(listings []models.MarketplaceListing, ref geo.Coordinates) {
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		d := geo.Haversine(ref, geo.Coordinates{
			Latitude:  *l.Latitude,
			Longitude: *l.Longitude,
		})
		l.Distance = &d
	}
}

func filterByDistance(listings []models.MarketplaceListing, radiusKm float64, opts Options, log logger.Logger) []models.MarketplaceListing {
	out := listings[:0]
	dropped := 0
	for _, l := range listings {
		if l.Distance == nil {
			if opts.DropWithoutCoordinates {
				dropped++
				metrics.ListingsDropped.WithLabelValues("no_coordinates").Inc()
				continue
			}
			out = append(out, l)
			continue
		}
		if *l.Distance > radiusKm {
			metrics.ListingsDropped.WithLabelValues("distance").Inc()
			continue
		}
		out = append(out, l)
	}
	if dropped > 0 {
		log.Debug("dropped coordinate-less listings under distance filter", map[string]interface{}{
			"dropped":   dropped,
			"radius_km": radiusKm,
		})
	}
	return out
}

// filterByRating excludes listings whose owner rating is unknown or below the
// threshold. An absent rating never satisfies a minimum.
func filterByRating(listings []models.MarketplaceListing, minRating float64) []models.MarketplaceListing {
	out := listings[:0]
	for _, l := range listings {
		if l.Owner.Rating == nil || *l.Owner.Rating < minRating {
			metrics.ListingsDropped.WithLabelValues("rating").Inc()
			continue
		}
		out = append(out, l)
	}
	return out
}
