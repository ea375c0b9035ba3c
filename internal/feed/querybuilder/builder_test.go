// internal/feed/querybuilder/builder_test.go
package querybuilder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/models"
)

func TestBuildSourceSelection(t *testing.T) {
	b := NewBuilder(10)

	tests := []struct {
		name        string
		listingType string
		wantService bool
		wantJob     bool
	}{
		{name: "all", listingType: models.ListingTypeAll, wantService: true, wantJob: true},
		{name: "default", listingType: "", wantService: true, wantJob: true},
		{name: "services only", listingType: models.ListingTypeService, wantService: true, wantJob: false},
		{name: "custom services only", listingType: models.ListingTypeCustomService, wantService: true, wantJob: false},
		{name: "jobs only", listingType: models.ListingTypeJob, wantService: false, wantJob: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, job := b.Build("", models.FilterOptions{ListingType: tt.listingType}, nil)
			assert.Equal(t, tt.wantService, svc != nil)
			assert.Equal(t, tt.wantJob, job != nil)
		})
	}
}

func TestBuildSearchText(t *testing.T) {
	b := NewBuilder(10)
	svc, job := b.Build("plumber", models.FilterOptions{}, nil)

	require.NotNil(t, svc)
	assert.Contains(t, svc.SQL, "l.title ILIKE $2 OR l.description ILIKE $2")
	assert.Contains(t, svc.Args, "%plumber%")

	require.NotNil(t, job)
	assert.Contains(t, job.SQL, "j.title ILIKE $2 OR j.description ILIKE $2")
}

func TestBuildOverFetchLimit(t *testing.T) {
	b := NewBuilder(10)
	svc, _ := b.Build("", models.FilterOptions{}, nil)
	assert.Contains(t, svc.SQL, "LIMIT 20", "each source fetches twice the page size")
}

func TestBuildPriceFilterOnServices(t *testing.T) {
	b := NewBuilder(10)
	svc, _ := b.Build("", models.FilterOptions{PriceMin: "10", PriceMax: "100"}, nil)

	assert.Contains(t, svc.SQL, "l.base_price >= $2")
	assert.Contains(t, svc.SQL, "l.base_price <= $3")
	assert.Contains(t, svc.Args, 10.0)
	assert.Contains(t, svc.Args, 100.0)
}

func TestBuildPriceFilterKeepsQuoteJobs(t *testing.T) {
	b := NewBuilder(10)
	_, job := b.Build("", models.FilterOptions{PriceMin: "10", PriceMax: "100"}, nil)

	require.NotNil(t, job)
	assert.Contains(t, job.SQL, "j.pricing_type = 'quote' OR COALESCE(j.fixed_price, j.budget_min) BETWEEN")
}

func TestBuildMalformedPriceIgnored(t *testing.T) {
	b := NewBuilder(10)
	svc, _ := b.Build("", models.FilterOptions{PriceMin: "cheap"}, nil)
	assert.NotContains(t, svc.SQL, "base_price", "unparseable bound behaves as unset")
}

func TestBuildCategoryAndLocation(t *testing.T) {
	b := NewBuilder(10)
	svc, _ := b.Build("", models.FilterOptions{
		CategoryIDs: []string{"c1", "c2"},
		Location:    "Berlin",
	}, nil)

	assert.Contains(t, svc.SQL, "l.category_id = ANY($2)")
	assert.Contains(t, svc.SQL, "l.location ILIKE $3")
	assert.Contains(t, svc.Args, "%Berlin%")
}

func TestBuildVerifiedAndInstantBooking(t *testing.T) {
	b := NewBuilder(10)
	svc, job := b.Build("", models.FilterOptions{VerifiedOnly: true, InstantBooking: true}, nil)

	assert.Contains(t, svc.SQL, "p.is_verified = TRUE")
	assert.Contains(t, svc.SQL, "l.instant_booking = TRUE")
	// Instant booking has no meaning for jobs; verified applies to both shapes
	// of listing but jobs don't carry the booking flag.
	assert.NotContains(t, job.SQL, "instant_booking")
}

func TestBuildCursorClause(t *testing.T) {
	b := NewBuilder(10)
	cursor := &Cursor{CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), ID: "abc"}

	svc, job := b.Build("", models.FilterOptions{}, cursor)
	assert.Contains(t, svc.SQL, "(l.created_at, l.id) < ($2, $3)")
	assert.Contains(t, job.SQL, "(j.created_at, j.id) < ($2, $3)")
	assert.Contains(t, svc.Args, "abc")
}

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{CreatedAt: time.Date(2026, 8, 1, 12, 30, 45, 123456789, time.UTC), ID: "listing-9"}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, original.CreatedAt.Equal(decoded.CreatedAt))
	assert.Equal(t, original.ID, decoded.ID)
}

func TestDecodeCursorErrors(t *testing.T) {
	nilCursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, nilCursor)

	for _, bad := range []string{"not-base64!!!", "aGVsbG8=", "bm90YXRpbWV8aWQ="} {
		_, err := DecodeCursor(bad)
		require.Error(t, err, bad)
		assert.Equal(t, stderrors.ErrCodeInvalidCursor, stderrors.CodeOf(err))
	}
}

func TestFingerprint(t *testing.T) {
	filters := models.FilterOptions{CategoryIDs: []string{"b", "a"}, PriceMin: "10"}
	reordered := models.FilterOptions{CategoryIDs: []string{"a", "b"}, PriceMin: "10"}

	assert.Equal(t, Fingerprint("q", filters, ""), Fingerprint("q", reordered, ""),
		"category order must not change the fingerprint")
	assert.NotEqual(t, Fingerprint("q", filters, ""), Fingerprint("other", filters, ""))
	assert.NotEqual(t, Fingerprint("q", filters, ""), Fingerprint("q", filters, "52.5200,13.4050"))
}
