// internal/feed/normalizer/normalizer_test.go
package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/models"
)

func TestPhotos(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  []string
	}{
		{name: "nil", input: nil, want: []string{}},
		{name: "native slice", input: []string{"a.jpg", "b.jpg"}, want: []string{"a.jpg", "b.jpg"}},
		{name: "interface slice", input: []interface{}{"a.jpg", "b.jpg"}, want: []string{"a.jpg", "b.jpg"}},
		{name: "json string", input: `["a.jpg","b.jpg"]`, want: []string{"a.jpg", "b.jpg"}},
		{name: "json bytes", input: []byte(`["a.jpg"]`), want: []string{"a.jpg"}},
		{name: "malformed json", input: `[not json`, want: []string{}},
		{name: "empty string", input: "", want: []string{}},
		{name: "unexpected type", input: 42, want: []string{}},
		{name: "empty entries filtered", input: []interface{}{"a.jpg", ""}, want: []string{"a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Photos(tt.input)
			require.NotNil(t, got, "photos must never be nil")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoordinate(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  *float64
	}{
		{name: "nil", input: nil, want: nil},
		{name: "float", input: 52.52, want: ptr(52.52)},
		{name: "numeric string", input: "52.52", want: ptr(52.52)},
		{name: "int", input: 52, want: ptr(52.0)},
		{name: "garbage string", input: "north", want: nil},
		{name: "empty string", input: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Coordinate(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.InDelta(t, *tt.want, *got, 1e-9)
			}
		})
	}
}

func TestServiceNormalization(t *testing.T) {
	raw := RawService{
		ID:        "svc-1",
		Title:     "Pipe repair",
		Latitude:  "52.52",
		Longitude: 13.405,
		Photos:    `["first.jpg","second.jpg"]`,
		BasePrice: ptr(80.0),
		PriceType: "hourly",
		ViewCount: 12,
		CreatedAt: time.Now(),
		Owner:     RawOwner{ID: "own-1", Name: "Alex", Rating: ptr(4.5), Verified: true},
	}

	listing, err := Service(raw)
	require.NoError(t, err)

	assert.Equal(t, models.KindService, listing.Kind)
	require.NotNil(t, listing.Service)
	assert.Nil(t, listing.Job)
	assert.Equal(t, models.ListingTypeService, listing.Service.ListingType, "empty listing type defaults to service")
	assert.Equal(t, "first.jpg", listing.FeaturedImage, "first photo becomes the featured image")
	require.NotNil(t, listing.Latitude)
	assert.InDelta(t, 52.52, *listing.Latitude, 1e-9)
	assert.Equal(t, 12, listing.ViewCount)
	assert.True(t, listing.Owner.Verified)

	// Repeated normalization of the same input is byte-for-byte identical.
	again, err := Service(raw)
	require.NoError(t, err)
	assert.Equal(t, listing, again)
}

func TestServiceFeaturedImageFallbacks(t *testing.T) {
	base := RawService{ID: "svc-1", Title: "T"}

	explicit := base
	explicit.FeaturedImage = "hero.jpg"
	explicit.Photos = []string{"other.jpg"}
	l, err := Service(explicit)
	require.NoError(t, err)
	assert.Equal(t, "hero.jpg", l.FeaturedImage)

	noPhotos := base
	l, err = Service(noPhotos)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceholderImage, l.FeaturedImage)
	assert.Equal(t, []string{}, l.Photos)
}

func TestJobNormalization(t *testing.T) {
	raw := RawJob{
		ID:            "job-1",
		Title:         "Move a couch",
		PricingType:   "quote",
		BudgetMin:     ptr(40.0),
		BudgetMax:     ptr(60.0),
		ExecutionDate: "2026-09-01",
		Owner:         RawOwner{ID: "own-2", Name: "Sam"},
	}

	listing, err := Job(raw)
	require.NoError(t, err)

	assert.Equal(t, models.KindJob, listing.Kind)
	require.NotNil(t, listing.Job)
	assert.Nil(t, listing.Service)
	assert.Equal(t, 0, listing.ViewCount, "jobs always report zero views")
	assert.Equal(t, "2026-09-01", listing.Job.ExecutionDate)
	assert.Nil(t, listing.Latitude)
	assert.Nil(t, listing.Longitude)
}

func TestMissingIdentity(t *testing.T) {
	_, err := Service(RawService{Title: "no id"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = Service(RawService{ID: "no-title"})
	assert.ErrorIs(t, err, ErrMissingIdentity)

	_, err = Job(RawJob{ID: "j", Title: ""})
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func ptr(f float64) *float64 { return &f }
