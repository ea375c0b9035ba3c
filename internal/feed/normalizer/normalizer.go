// internal/feed/normalizer/normalizer.go
package normalizer

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"marketfeed/internal/models"
)

var ErrMissingIdentity = errors.New("listing is missing id or title")

// RawOwner is the denormalized profile joined onto each source row.
type RawOwner struct {
	ID        string
	Name      string
	AvatarURL string
	Rating    *float64
	Verified  bool
}

// RawService is one row from the service_listings source before normalization.
// Latitude, Longitude and Photos are interface{} because the source stores
// them inconsistently: numerics arrive as float64 or numeric-string, photos as
// a native array, a JSON-encoded string, or not at all.
type RawService struct {
	ID            string
	Title         string
	Description   string
	CategoryID    string
	Location      string
	Latitude      interface{}
	Longitude     interface{}
	Photos        interface{}
	FeaturedImage string
	BasePrice     *float64
	PriceType     string
	ListingType   string
	ViewCount     int
	Status        string
	CreatedAt     time.Time
	Owner         RawOwner
}

// RawJob is one row from the jobs source before normalization.
type RawJob struct {
	ID            string
	Title         string
	Description   string
	CategoryID    string
	Location      string
	Latitude      interface{}
	Longitude     interface{}
	Photos        interface{}
	PricingType   string
	BudgetMin     *float64
	BudgetMax     *float64
	FixedPrice    *float64
	ExecutionDate string
	PreferredTime string
	SpecificTime  string
	Status        string
	CreatedAt     time.Time
	Owner         RawOwner
}

// Service maps a raw service row to the unified listing shape. Pure function:
// no side effects, no I/O, idempotent.
func Service(raw RawService) (models.MarketplaceListing, error) {
	if raw.ID == "" || raw.Title == "" {
		return models.MarketplaceListing{}, ErrMissingIdentity
	}

	photos := Photos(raw.Photos)
	listingType := raw.ListingType
	if listingType == "" {
		listingType = models.ListingTypeService
	}

	return models.MarketplaceListing{
		ID:            raw.ID,
		Kind:          models.KindService,
		Title:         raw.Title,
		Description:   raw.Description,
		CategoryID:    raw.CategoryID,
		Location:      raw.Location,
		Latitude:      Coordinate(raw.Latitude),
		Longitude:     Coordinate(raw.Longitude),
		Photos:        photos,
		FeaturedImage: featuredImage(raw.FeaturedImage, photos),
		CreatedAt:     raw.CreatedAt,
		Status:        raw.Status,
		Owner:         owner(raw.Owner),
		ViewCount:     raw.ViewCount,
		Service: &models.ServiceDetails{
			BasePrice:   raw.BasePrice,
			PriceType:   raw.PriceType,
			ListingType: listingType,
		},
	}, nil
}

// Job maps a raw job row to the unified listing shape. Scheduling fields pass
// through untouched; the view counter is always zero for jobs.
func Job(raw RawJob) (models.MarketplaceListing, error) {
	if raw.ID == "" || raw.Title == "" {
		return models.MarketplaceListing{}, ErrMissingIdentity
	}

	photos := Photos(raw.Photos)

	return models.MarketplaceListing{
		ID:            raw.ID,
		Kind:          models.KindJob,
		Title:         raw.Title,
		Description:   raw.Description,
		CategoryID:    raw.CategoryID,
		Location:      raw.Location,
		Latitude:      Coordinate(raw.Latitude),
		Longitude:     Coordinate(raw.Longitude),
		Photos:        photos,
		FeaturedImage: featuredImage("", photos),
		CreatedAt:     raw.CreatedAt,
		Status:        raw.Status,
		Owner:         owner(raw.Owner),
		ViewCount:     0,
		Job: &models.JobDetails{
			PricingType:   raw.PricingType,
			BudgetMin:     raw.BudgetMin,
			BudgetMax:     raw.BudgetMax,
			FixedPrice:    raw.FixedPrice,
			ExecutionDate: raw.ExecutionDate,
			PreferredTime: raw.PreferredTime,
			SpecificTime:  raw.SpecificTime,
		},
	}, nil
}

// Photos normalizes the photos field to an array shape. A native array passes
// through, a JSON-encoded string is decoded, anything else (including a string
// that fails to parse) degrades to an empty array. Never returns nil.
func Photos(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, 0, len(val))
		return append(out, val...)
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return photosFromJSON([]byte(val))
	case []byte:
		return photosFromJSON(val)
	default:
		return []string{}
	}
}

func photosFromJSON(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	var parsed []string
	if err := json.Unmarshal(data, &parsed); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(parsed))
	for _, s := range parsed {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Coordinate coerces a numeric or numeric-string value to a float pointer,
// nil when absent or unparseable.
func Coordinate(v interface{}) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case float32:
		f := float64(val)
		return &f
	case int:
		f := float64(val)
		return &f
	case int64:
		f := float64(val)
		return &f
	case string:
		return coordFromString(val)
	case []byte:
		return coordFromString(string(val))
	default:
		return nil
	}
}

func coordFromString(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// featuredImage falls back from the stored featured image to the first photo,
// then to the fixed placeholder.
func featuredImage(featured string, photos []string) string {
	if featured != "" {
		return featured
	}
	if len(photos) > 0 {
		return photos[0]
	}
	return models.PlaceholderImage
}

func owner(raw RawOwner) models.OwnerProfile {
	return models.OwnerProfile{
		ID:        raw.ID,
		Name:      raw.Name,
		AvatarURL: raw.AvatarURL,
		Rating:    raw.Rating,
		Verified:  raw.Verified,
	}
}
