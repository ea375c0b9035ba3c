// internal/feed/querybuilder/builder.go
package querybuilder

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/models"
)

// SourceQuery is one executable query descriptor against a listing source.
type SourceQuery struct {
	Source string
	Kind   models.ListingKind
	SQL    string
	Args   []interface{}
}

// Cursor is a keyset pagination position: fetch rows strictly older than
// (CreatedAt, ID) in the most-recent-first order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode serializes the cursor for transport.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an encoded cursor. An empty string decodes to nil.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, stderrors.NewInvalidCursorError(err.Error())
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, stderrors.NewInvalidCursorError("malformed cursor payload")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return nil, stderrors.NewInvalidCursorError(err.Error())
	}
	return &Cursor{CreatedAt: ts, ID: parts[1]}, nil
}

// Builder translates search text and a filter set into the two source query
// descriptors. Each query is capped at twice the page size so the merge/sort
// step has enough candidates without unbounded fetch.
type Builder struct {
	PageSize int
}

func NewBuilder(pageSize int) *Builder {
	return &Builder{PageSize: pageSize}
}

// Build returns the service and job query descriptors. Either may be nil when
// the listing-type restriction rules that source out.
func (b *Builder) Build(searchText string, filters models.FilterOptions, cursor *Cursor) (*SourceQuery, *SourceQuery) {
	var serviceQuery, jobQuery *SourceQuery

	switch filters.ListingType {
	case models.ListingTypeService, models.ListingTypeCustomService:
		serviceQuery = b.buildServiceQuery(searchText, filters, cursor)
	case models.ListingTypeJob:
		jobQuery = b.buildJobQuery(searchText, filters, cursor)
	default:
		serviceQuery = b.buildServiceQuery(searchText, filters, cursor)
		jobQuery = b.buildJobQuery(searchText, filters, cursor)
	}

	return serviceQuery, jobQuery
}

// where accumulates parameterized clauses with positional placeholders.
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	placeholders := make([]interface{}, len(args))
	for i := range args {
		w.args = append(w.args, args[i])
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(clause, placeholders...))
}

func (w *where) clause() string {
	return strings.Join(w.clauses, " AND ")
}

func (b *Builder) buildServiceQuery(searchText string, filters models.FilterOptions, cursor *Cursor) *SourceQuery {
	w := &where{}
	w.add("l.status = %s", "active")

	applyCommonFilters(w, "l", searchText, filters)

	if minPrice, ok := filters.PriceMinValue(); ok {
		w.add("l.base_price >= %s", minPrice)
	}
	if maxPrice, ok := filters.PriceMaxValue(); ok {
		w.add("l.base_price <= %s", maxPrice)
	}
	if filters.VerifiedOnly {
		w.clauses = append(w.clauses, "p.is_verified = TRUE")
	}
	if filters.InstantBooking {
		w.clauses = append(w.clauses, "l.instant_booking = TRUE")
	}
	if filters.ListingType == models.ListingTypeService || filters.ListingType == models.ListingTypeCustomService {
		w.add("l.listing_type = %s", filters.ListingType)
	}
	applyCursor(w, "l", cursor)

	query := `SELECT l.id, l.title, l.description, l.category_id, l.location,
       l.latitude, l.longitude, l.photos, l.featured_image,
       l.base_price, l.price_type, l.listing_type, l.view_count,
       l.status, l.created_at,
       p.id, p.full_name, p.avatar_url, p.rating, p.is_verified
FROM service_listings l
JOIN profiles p ON p.id = l.provider_id
WHERE ` + w.clause() + `
ORDER BY l.created_at DESC, l.id DESC
LIMIT ` + fmt.Sprintf("%d", 2*b.PageSize)

	return &SourceQuery{
		Source: "service_listings",
		Kind:   models.KindService,
		SQL:    query,
		Args:   w.args,
	}
}

func (b *Builder) buildJobQuery(searchText string, filters models.FilterOptions, cursor *Cursor) *SourceQuery {
	w := &where{}
	w.add("j.status = %s", "open")

	applyCommonFilters(w, "j", searchText, filters)

	// Quote-based jobs have no fixed price to compare, so the price filter
	// always lets them through.
	minPrice, hasMin := filters.PriceMinValue()
	maxPrice, hasMax := filters.PriceMaxValue()
	switch {
	case hasMin && hasMax:
		w.add("(j.pricing_type = 'quote' OR COALESCE(j.fixed_price, j.budget_min) BETWEEN %s AND %s)", minPrice, maxPrice)
	case hasMin:
		w.add("(j.pricing_type = 'quote' OR COALESCE(j.fixed_price, j.budget_min) >= %s)", minPrice)
	case hasMax:
		w.add("(j.pricing_type = 'quote' OR COALESCE(j.fixed_price, j.budget_min) <= %s)", maxPrice)
	}
	applyCursor(w, "j", cursor)

	query := `SELECT j.id, j.title, j.description, j.category_id, j.location,
       j.latitude, j.longitude, j.photos,
       j.pricing_type, j.budget_min, j.budget_max, j.fixed_price,
       j.execution_date, j.preferred_time, j.specific_time,
       j.status, j.created_at,
       p.id, p.full_name, p.avatar_url, p.rating, p.is_verified
FROM jobs j
JOIN profiles p ON p.id = j.customer_id
WHERE ` + w.clause() + `
ORDER BY j.created_at DESC, j.id DESC
LIMIT ` + fmt.Sprintf("%d", 2*b.PageSize)

	return &SourceQuery{
		Source: "jobs",
		Kind:   models.KindJob,
		SQL:    query,
		Args:   w.args,
	}
}

func applyCommonFilters(w *where, alias, searchText string, filters models.FilterOptions) {
	if searchText != "" {
		pattern := "%" + searchText + "%"
		w.add("("+alias+".title ILIKE %[1]s OR "+alias+".description ILIKE %[1]s)", pattern)
	}
	if len(filters.CategoryIDs) > 0 {
		w.add(alias+".category_id = ANY(%s)", pq.Array(filters.CategoryIDs))
	}
	if filters.Location != "" {
		w.add(alias+".location ILIKE %s", "%"+filters.Location+"%")
	}
}

func applyCursor(w *where, alias string, cursor *Cursor) {
	if cursor == nil {
		return
	}
	w.add("("+alias+".created_at, "+alias+".id) < (%s, %s)", cursor.CreatedAt, cursor.ID)
}

// Fingerprint identifies a fetch cycle's inputs for session caching. Filter
// field order is canonicalized so equal filter sets always collide.
func Fingerprint(searchText string, filters models.FilterOptions, location string) string {
	cats := append([]string(nil), filters.CategoryIDs...)
	sort.Strings(cats)

	h := sha256.New()
	fmt.Fprintf(h, "q=%s|cat=%s|loc=%s|pmin=%s|pmax=%s|rat=%.2f|dist=%.2f|avail=%s|sort=%s|ver=%t|inst=%t|type=%s|ref=%s",
		searchText, strings.Join(cats, ","), filters.Location,
		filters.PriceMin, filters.PriceMax, filters.MinRating, filters.Distance,
		filters.Availability, filters.SortBy, filters.VerifiedOnly,
		filters.InstantBooking, filters.ListingType, location)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
