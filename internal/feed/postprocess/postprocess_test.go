// internal/feed/postprocess/postprocess_test.go
package postprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/common/logger"
	"marketfeed/internal/geo"
	"marketfeed/internal/models"
)

var berlin = geo.Coordinates{Latitude: 52.52, Longitude: 13.405}

func listing(id string, lat, lon *float64) models.MarketplaceListing {
	return models.MarketplaceListing{ID: id, Kind: models.KindService, Title: id, Latitude: lat, Longitude: lon}
}

func ptr(f float64) *float64 { return &f }

func TestDistanceAttachment(t *testing.T) {
	// Potsdam is roughly 26 km from central Berlin.
	in := []models.MarketplaceListing{
		listing("near", ptr(52.51), ptr(13.40)),
		listing("potsdam", ptr(52.39), ptr(13.06)),
		listing("no-coords", nil, nil),
	}

	out := Apply(in, models.FilterOptions{}, &berlin, Options{}, logger.NewNoOpLogger())

	require.Len(t, out, 3, "no distance filter means nothing is dropped")
	byID := indexByID(out)
	require.NotNil(t, byID["near"].Distance)
	assert.Less(t, *byID["near"].Distance, 2.0)
	require.NotNil(t, byID["potsdam"].Distance)
	assert.InDelta(t, 26, *byID["potsdam"].Distance, 3)
	assert.Nil(t, byID["no-coords"].Distance)
}

func TestDistanceFilter(t *testing.T) {
	in := []models.MarketplaceListing{
		listing("near", ptr(52.51), ptr(13.40)),
		listing("potsdam", ptr(52.39), ptr(13.06)),
		listing("no-coords", nil, nil),
	}
	filters := models.FilterOptions{Distance: 10}

	t.Run("drop coordinate-less", func(t *testing.T) {
		out := Apply(in, filters, &berlin, Options{DropWithoutCoordinates: true}, logger.NewNoOpLogger())
		require.Len(t, out, 1)
		assert.Equal(t, "near", out[0].ID)
	})

	t.Run("keep coordinate-less", func(t *testing.T) {
		out := Apply(in, filters, &berlin, Options{DropWithoutCoordinates: false}, logger.NewNoOpLogger())
		require.Len(t, out, 2)
		assert.Equal(t, "near", out[0].ID)
		assert.Equal(t, "no-coords", out[1].ID)
	})

	t.Run("no reference location disables the filter", func(t *testing.T) {
		out := Apply(in, filters, nil, Options{DropWithoutCoordinates: true}, logger.NewNoOpLogger())
		assert.Len(t, out, 3)
	})
}

func TestRatingFilter(t *testing.T) {
	rated := listing("rated", nil, nil)
	rated.Owner.Rating = ptr(4.6)
	low := listing("low", nil, nil)
	low.Owner.Rating = ptr(3.0)
	unrated := listing("unrated", nil, nil)

	out := Apply([]models.MarketplaceListing{rated, low, unrated},
		models.FilterOptions{MinRating: 4}, nil, Options{}, logger.NewNoOpLogger())

	require.Len(t, out, 1, "unknown rating never satisfies a minimum")
	assert.Equal(t, "rated", out[0].ID)
}

func TestInputNotMutated(t *testing.T) {
	in := []models.MarketplaceListing{
		listing("b", ptr(52.51), ptr(13.40)),
		listing("a", ptr(52.50), ptr(13.41)),
	}
	in[0].CreatedAt = time.Now().Add(-time.Hour)
	in[1].CreatedAt = time.Now()

	_ = Apply(in, models.FilterOptions{SortBy: models.SortRecent}, &berlin, Options{}, logger.NewNoOpLogger())

	assert.Equal(t, "b", in[0].ID, "caller's slice order must survive")
	assert.Nil(t, in[0].Distance, "caller's listings must not gain distances")
}

func indexByID(listings []models.MarketplaceListing) map[string]models.MarketplaceListing {
	out := make(map[string]models.MarketplaceListing, len(listings))
	for _, l := range listings {
		out[l.ID] = l
	}
	return out
}
