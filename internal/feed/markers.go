// internal/feed/markers.go
package feed

import (
	"context"
	"fmt"

	"marketfeed/internal/geo"
	"marketfeed/internal/models"
)

// Markers projects listings with coordinates into map markers. Listings
// without both coordinates are excluded; they cannot be placed on a map.
func Markers(listings []models.MarketplaceListing) []models.MapMarker {
	out := make([]models.MapMarker, 0, len(listings))
	for i := range listings {
		l := &listings[i]
		if !l.HasCoordinates() {
			continue
		}
		marker := models.MapMarker{
			ID:        l.ID,
			Latitude:  *l.Latitude,
			Longitude: *l.Longitude,
			Title:     l.Title,
			Kind:      l.Kind,
		}
		if l.Service != nil {
			marker.Price = l.Service.BasePrice
			marker.ListingType = l.Service.ListingType
		} else if l.Job != nil {
			marker.Price = markerJobPrice(l.Job)
		}
		out = append(out, marker)
	}
	return out
}

// FetchMarkers runs the superset fetch for the request's inputs and projects
// the result to map markers, bypassing pagination: the map shows everything
// the query matched.
func (p *Pipeline) FetchMarkers(ctx context.Context, req Request) ([]models.MapMarker, error) {
	fingerprint := Fingerprint(req)
	superset, err := p.superset(ctx, req, fingerprint)
	if err != nil {
		return nil, err
	}
	return Markers(superset), nil
}

func markerJobPrice(j *models.JobDetails) *float64 {
	if j.FixedPrice != nil {
		return j.FixedPrice
	}
	return j.BudgetMin
}

// geoKey is the canonical string form of coordinates used in fingerprints.
// Four decimal places is roughly 11 m, tight enough that two fingerprints for
// "the same place" collide.
func geoKey(c geo.Coordinates) string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}
