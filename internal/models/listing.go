// internal/models/listing.go
package models

import "time"

// ListingKind discriminates the two concrete marketplace entry variants.
type ListingKind string

const (
	KindService ListingKind = "service"
	KindJob     ListingKind = "job"
)

// ListingType values carried by service listings and used for type restriction.
const (
	ListingTypeService       = "service"
	ListingTypeCustomService = "custom_service"
	ListingTypeJob           = "job"
	ListingTypeAll           = "all"
)

// PlaceholderImage is the fallback featured image when a listing carries no photos.
const PlaceholderImage = "https://cdn.marketfeed.app/static/listing-placeholder.png"

// OwnerProfile is the denormalized profile attached to every listing:
// the provider for services, the posting customer for jobs.
type OwnerProfile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Verified  bool     `json:"verified"`
}

// ServiceDetails holds the service-variant payload.
type ServiceDetails struct {
	BasePrice   *float64 `json:"basePrice,omitempty"`
	PriceType   string   `json:"priceType"` // "hourly" or "fixed"
	ListingType string   `json:"listingType"`
}

// JobDetails holds the job-variant payload. Scheduling fields are not used by
// feed rendering and pass through untouched.
type JobDetails struct {
	PricingType   string   `json:"pricingType"` // "quote" or "fixed"
	BudgetMin     *float64 `json:"budgetMin,omitempty"`
	BudgetMax     *float64 `json:"budgetMax,omitempty"`
	FixedPrice    *float64 `json:"fixedPrice,omitempty"`
	ExecutionDate string   `json:"executionDate,omitempty"`
	PreferredTime string   `json:"preferredTime,omitempty"`
	SpecificTime  string   `json:"specificTime,omitempty"`
}

// MarketplaceListing is the unified shape produced by the normalizer.
// Exactly one of Service/Job is non-nil, matching Kind.
type MarketplaceListing struct {
	ID            string          `json:"id"`
	Kind          ListingKind     `json:"kind"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	Location      string          `json:"location,omitempty"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
	Photos        []string        `json:"photos"`
	FeaturedImage string          `json:"featuredImage"`
	CreatedAt     time.Time       `json:"createdAt"`
	Status        string          `json:"status"`
	Owner         OwnerProfile    `json:"owner"`
	Distance      *float64        `json:"distance,omitempty"` // km, computed, never stored
	ViewCount     int             `json:"viewCount"`          // services only; jobs report zero
	Service       *ServiceDetails `json:"service,omitempty"`
	Job           *JobDetails     `json:"job,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (l *MarketplaceListing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// MapMarker is the projection consumed by the map rendering collaborator.
type MapMarker struct {
	ID          string      `json:"id"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Title       string      `json:"title"`
	Price       *float64    `json:"price,omitempty"`
	Kind        ListingKind `json:"type"`
	ListingType string      `json:"listingType,omitempty"`
}

// Category is a row from the categories table.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}
