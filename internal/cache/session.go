// internal/cache/session.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketfeed/internal/common/database"
	stderrors "marketfeed/internal/common/errors"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/common/metrics"
	"marketfeed/internal/models"
)

// SessionCache stores the post-processed listing superset per user and input
// fingerprint, so later pages of the same query slice from cache instead of
// re-running the sources.
type SessionCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewSessionCache(rdb *database.RedisClient, ttl time.Duration, log logger.Logger) *SessionCache {
	return &SessionCache{
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "session_cache"}),
	}
}

func sessionKey(userID, fingerprint string) string {
	return fmt.Sprintf("feed:sess:%s:%s", userID, fingerprint)
}

// Get returns the cached superset for (userID, fingerprint), or (nil, false)
// on a miss. Read failures count as misses.
func (c *SessionCache) Get(ctx context.Context, userID, fingerprint string) ([]models.MarketplaceListing, bool) {
	raw, err := c.redis.Client.Get(ctx, sessionKey(userID, fingerprint)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("session cache read failed", map[string]interface{}{
				"user_id": userID,
				"error":   err,
			})
		}
		metrics.CacheHits.WithLabelValues("session", "miss").Inc()
		return nil, false
	}

	var listings []models.MarketplaceListing
	if err := json.Unmarshal([]byte(raw), &listings); err != nil {
		metrics.CacheHits.WithLabelValues("session", "miss").Inc()
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("session", "hit").Inc()
	return listings, true
}

// Set caches the superset for (userID, fingerprint) with the configured TTL.
func (c *SessionCache) Set(ctx context.Context, userID, fingerprint string, listings []models.MarketplaceListing) error {
	payload, err := json.Marshal(listings)
	if err != nil {
		return stderrors.NewCacheFailedError("marshal", err)
	}
	if err := c.redis.Client.Set(ctx, sessionKey(userID, fingerprint), payload, c.ttl).Err(); err != nil {
		return stderrors.NewCacheFailedError("set", err)
	}
	return nil
}

// InvalidateFor removes every cached superset belonging to a user. Called when
// the user's own listings change, so their next fetch reflects the write.
func (c *SessionCache) InvalidateFor(ctx context.Context, userID string) error {
	pattern := sessionKey(userID, "*")
	var cursor uint64
	for {
		keys, next, err := c.redis.Client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return stderrors.NewCacheFailedError("scan", err)
		}
		if len(keys) > 0 {
			if err := c.redis.Client.Del(ctx, keys...).Err(); err != nil {
				return stderrors.NewCacheFailedError("del", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
