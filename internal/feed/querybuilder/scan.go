// internal/feed/querybuilder/scan.go
package querybuilder

import (
	"database/sql"
	"time"

	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/feed/normalizer"
	"marketfeed/internal/models"
)

// ScanServiceRows drains a service_listings result set into normalized
// listings. Rows that fail to scan or normalize are dropped and counted, never
// fatal: a single corrupt row must not sink the whole source.
func ScanServiceRows(rows *sql.Rows, log logger.Logger) ([]models.MarketplaceListing, error) {
	var out []models.MarketplaceListing

	for rows.Next() {
		var (
			raw           normalizer.RawService
			description   sql.NullString
			categoryID    sql.NullString
			location      sql.NullString
			latitude      sql.NullString
			longitude     sql.NullString
			photos        sql.NullString
			featuredImage sql.NullString
			basePrice     sql.NullFloat64
			priceType     sql.NullString
			listingType   sql.NullString
			viewCount     sql.NullInt64
			createdAt     time.Time
			ownerName     sql.NullString
			ownerAvatar   sql.NullString
			ownerRating   sql.NullFloat64
			ownerVerified sql.NullBool
		)

		err := rows.Scan(
			&raw.ID, &raw.Title, &description, &categoryID, &location,
			&latitude, &longitude, &photos, &featuredImage,
			&basePrice, &priceType, &listingType, &viewCount,
			&raw.Status, &createdAt,
			&raw.Owner.ID, &ownerName, &ownerAvatar, &ownerRating, &ownerVerified,
		)
		if err != nil {
			log.Warn("skipping unreadable service row", map[string]interface{}{"error": err})
			metrics.ListingsDropped.WithLabelValues("scan_error").Inc()
			continue
		}

		raw.Description = description.String
		raw.CategoryID = categoryID.String
		raw.Location = location.String
		raw.Latitude = nullableString(latitude)
		raw.Longitude = nullableString(longitude)
		raw.Photos = nullableString(photos)
		raw.FeaturedImage = featuredImage.String
		raw.PriceType = priceType.String
		raw.ListingType = listingType.String
		raw.ViewCount = int(viewCount.Int64)
		raw.CreatedAt = createdAt
		raw.Owner.Name = ownerName.String
		raw.Owner.AvatarURL = ownerAvatar.String
		raw.Owner.Verified = ownerVerified.Bool
		if basePrice.Valid {
			raw.BasePrice = &basePrice.Float64
		}
		if ownerRating.Valid {
			raw.Owner.Rating = &ownerRating.Float64
		}

		listing, err := normalizer.Service(raw)
		if err != nil {
			log.Warn("skipping malformed service listing", map[string]interface{}{
				"listing_id": raw.ID,
				"error":      err,
			})
			metrics.ListingsDropped.WithLabelValues("missing_identity").Inc()
			continue
		}
		out = append(out, listing)
	}

	return out, rows.Err()
}

// ScanJobRows drains a jobs result set into normalized listings with the same
// drop-don't-fail behavior as ScanServiceRows.
func ScanJobRows(rows *sql.Rows, log logger.Logger) ([]models.MarketplaceListing, error) {
	var out []models.MarketplaceListing

	for rows.Next() {
		var (
			raw           normalizer.RawJob
			description   sql.NullString
			categoryID    sql.NullString
			location      sql.NullString
			latitude      sql.NullString
			longitude     sql.NullString
			photos        sql.NullString
			pricingType   sql.NullString
			budgetMin     sql.NullFloat64
			budgetMax     sql.NullFloat64
			fixedPrice    sql.NullFloat64
			executionDate sql.NullString
			preferredTime sql.NullString
			specificTime  sql.NullString
			createdAt     time.Time
			ownerName     sql.NullString
			ownerAvatar   sql.NullString
			ownerRating   sql.NullFloat64
			ownerVerified sql.NullBool
		)

		err := rows.Scan(
			&raw.ID, &raw.Title, &description, &categoryID, &location,
			&latitude, &longitude, &photos,
			&pricingType, &budgetMin, &budgetMax, &fixedPrice,
			&executionDate, &preferredTime, &specificTime,
			&raw.Status, &createdAt,
			&raw.Owner.ID, &ownerName, &ownerAvatar, &ownerRating, &ownerVerified,
		)
		if err != nil {
			log.Warn("skipping unreadable job row", map[string]interface{}{"error": err})
			metrics.ListingsDropped.WithLabelValues("scan_error").Inc()
			continue
		}

		raw.Description = description.String
		raw.CategoryID = categoryID.String
		raw.Location = location.String
		raw.Latitude = nullableString(latitude)
		raw.Longitude = nullableString(longitude)
		raw.Photos = nullableString(photos)
		raw.PricingType = pricingType.String
		raw.ExecutionDate = executionDate.String
		raw.PreferredTime = preferredTime.String
		raw.SpecificTime = specificTime.String
		raw.CreatedAt = createdAt
		raw.Owner.Name = ownerName.String
		raw.Owner.AvatarURL = ownerAvatar.String
		raw.Owner.Verified = ownerVerified.Bool
		if budgetMin.Valid {
			raw.BudgetMin = &budgetMin.Float64
		}
		if budgetMax.Valid {
			raw.BudgetMax = &budgetMax.Float64
		}
		if fixedPrice.Valid {
			raw.FixedPrice = &fixedPrice.Float64
		}
		if ownerRating.Valid {
			raw.Owner.Rating = &ownerRating.Float64
		}

		listing, err := normalizer.Job(raw)
		if err != nil {
			log.Warn("skipping malformed job listing", map[string]interface{}{
				"listing_id": raw.ID,
				"error":      err,
			})
			metrics.ListingsDropped.WithLabelValues("missing_identity").Inc()
			continue
		}
		out = append(out, listing)
	}

	return out, rows.Err()
}

// nullableString keeps SQL NULL distinguishable from empty so the normalizer's
// coercion sees absence, not "".
func nullableString(v sql.NullString) interface{} {
	if !v.Valid {
		return nil
	}
	return v.String
}
