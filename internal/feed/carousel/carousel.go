// internal/feed/carousel/carousel.go
package carousel

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/feed/querybuilder"
	"marketfeed/internal/models"
)

const (
	keyTrending    = "feed:carousel:trending"
	keyPopular     = "feed:carousel:popular"
	keyRecommended = "feed:carousel:recommended"
)

// Fetcher produces the three secondary carousel sets. Each set is cached in
// redis with a TTL and refreshed in the background, so a feed cycle normally
// pays only a cache read. A carousel that cannot be produced degrades to
// empty; it never fails the feed.
type Fetcher struct {
	db     *database.PostgresClient
	redis  *database.RedisClient
	size   int
	ttl    time.Duration
	logger logger.Logger
}

func NewFetcher(db *database.PostgresClient, rdb *database.RedisClient, size int, ttl time.Duration, log logger.Logger) *Fetcher {
	return &Fetcher{
		db:     db,
		redis:  rdb,
		size:   size,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "carousel"}),
	}
}

// FetchAll loads the three carousels concurrently. Individual failures are
// logged and yield empty slices.
func (f *Fetcher) FetchAll(ctx context.Context) models.Carousels {
	var out models.Carousels
	var wg sync.WaitGroup

	fetch := func(dst *[]models.MarketplaceListing, key string, query func(context.Context) ([]models.MarketplaceListing, error)) {
		defer wg.Done()
		listings, err := f.cached(ctx, key, query)
		if err != nil {
			metrics.SourceQueryFailures.WithLabelValues("carousel").Inc()
			f.logger.Warn("carousel fetch failed, rendering without it", map[string]interface{}{
				"carousel": key,
				"error":    err,
			})
			return
		}
		*dst = listings
	}

	wg.Add(3)
	go fetch(&out.Trending, keyTrending, f.queryTrending)
	go fetch(&out.Popular, keyPopular, f.queryPopular)
	go fetch(&out.Recommended, keyRecommended, f.queryRecommended)
	wg.Wait()

	return out
}

// Refresh recomputes and re-caches every carousel. Wired to the background
// refresh schedule so user-facing fetches stay warm.
func (f *Fetcher) Refresh(ctx context.Context) {
	for key, query := range map[string]func(context.Context) ([]models.MarketplaceListing, error){
		keyTrending:    f.queryTrending,
		keyPopular:     f.queryPopular,
		keyRecommended: f.queryRecommended,
	} {
		listings, err := query(ctx)
		if err != nil {
			f.logger.Warn("carousel refresh failed", map[string]interface{}{
				"carousel": key,
				"error":    err,
			})
			continue
		}
		f.store(ctx, key, listings)
	}
}

func (f *Fetcher) cached(ctx context.Context, key string, query func(context.Context) ([]models.MarketplaceListing, error)) ([]models.MarketplaceListing, error) {
	raw, err := f.redis.Client.Get(ctx, key).Result()
	if err == nil {
		var listings []models.MarketplaceListing
		if err := json.Unmarshal([]byte(raw), &listings); err == nil {
			metrics.CacheHits.WithLabelValues("carousel", "hit").Inc()
			return listings, nil
		}
	} else if err != redis.Nil {
		f.logger.Warn("carousel cache read failed", map[string]interface{}{
			"carousel": key,
			"error":    err,
		})
	}
	metrics.CacheHits.WithLabelValues("carousel", "miss").Inc()

	listings, err := query(ctx)
	if err != nil {
		return nil, err
	}
	f.store(ctx, key, listings)
	return listings, nil
}

func (f *Fetcher) store(ctx context.Context, key string, listings []models.MarketplaceListing) {
	payload, err := json.Marshal(listings)
	if err != nil {
		return
	}
	if err := f.redis.Client.Set(ctx, key, payload, f.ttl).Err(); err != nil {
		f.logger.Warn("carousel cache write failed", map[string]interface{}{
			"carousel": key,
			"error":    err,
		})
	}
}

// queryTrending returns the most-viewed active services.
func (f *Fetcher) queryTrending(ctx context.Context) ([]models.MarketplaceListing, error) {
	query := `SELECT l.id, l.title, l.description, l.category_id, l.location,
       l.latitude, l.longitude, l.photos, l.featured_image,
       l.base_price, l.price_type, l.listing_type, l.view_count,
       l.status, l.created_at,
       p.id, p.full_name, p.avatar_url, p.rating, p.is_verified
FROM service_listings l
JOIN profiles p ON p.id = l.provider_id
WHERE l.status = $1
ORDER BY l.view_count DESC, l.created_at DESC
LIMIT $2`
	return f.queryServices(ctx, query, "active", f.size)
}

// queryPopular returns active services from the highest-rated providers.
func (f *Fetcher) queryPopular(ctx context.Context) ([]models.MarketplaceListing, error) {
	query := `SELECT l.id, l.title, l.description, l.category_id, l.location,
       l.latitude, l.longitude, l.photos, l.featured_image,
       l.base_price, l.price_type, l.listing_type, l.view_count,
       l.status, l.created_at,
       p.id, p.full_name, p.avatar_url, p.rating, p.is_verified
FROM service_listings l
JOIN profiles p ON p.id = l.provider_id
WHERE l.status = $1 AND p.rating IS NOT NULL
ORDER BY p.rating DESC, l.view_count DESC
LIMIT $2`
	return f.queryServices(ctx, query, "active", f.size)
}

// queryRecommended returns recent services from verified providers.
func (f *Fetcher) queryRecommended(ctx context.Context) ([]models.MarketplaceListing, error) {
	query := `SELECT l.id, l.title, l.description, l.category_id, l.location,
       l.latitude, l.longitude, l.photos, l.featured_image,
       l.base_price, l.price_type, l.listing_type, l.view_count,
       l.status, l.created_at,
       p.id, p.full_name, p.avatar_url, p.rating, p.is_verified
FROM service_listings l
JOIN profiles p ON p.id = l.provider_id
WHERE l.status = $1 AND p.is_verified = TRUE
ORDER BY l.created_at DESC
LIMIT $2`
	return f.queryServices(ctx, query, "active", f.size)
}

func (f *Fetcher) queryServices(ctx context.Context, query string, args ...interface{}) ([]models.MarketplaceListing, error) {
	rows, err := f.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return querybuilder.ScanServiceRows(rows, f.logger)
}
