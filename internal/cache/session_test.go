// internal/cache/session_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeed/internal/common/database"
	"marketfeed/internal/common/logger"
	"marketfeed/internal/models"
)

func newTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewSessionCache(&database.RedisClient{Client: client}, 15*time.Minute, logger.NewTestLogger(t))
	return c, mr
}

func sample(ids ...string) []models.MarketplaceListing {
	out := make([]models.MarketplaceListing, len(ids))
	for i, id := range ids {
		out[i] = models.MarketplaceListing{ID: id, Kind: models.KindService, Title: id, Photos: []string{}}
	}
	return out
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "user-1", "fp-1")
	assert.False(t, ok, "empty cache misses")

	require.NoError(t, c.Set(ctx, "user-1", "fp-1", sample("a", "b")))

	got, ok := c.Get(ctx, "user-1", "fp-1")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
}

func TestSessionCacheFingerprintIsolation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", "fp-1", sample("a")))

	_, ok := c.Get(ctx, "user-1", "fp-2")
	assert.False(t, ok, "different inputs must not share a superset")

	_, ok = c.Get(ctx, "user-2", "fp-1")
	assert.False(t, ok, "different users must not share a superset")
}

func TestSessionCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", "fp-1", sample("a")))
	mr.FastForward(16 * time.Minute)

	_, ok := c.Get(ctx, "user-1", "fp-1")
	assert.False(t, ok)
}

func TestInvalidateFor(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", "fp-1", sample("a")))
	require.NoError(t, c.Set(ctx, "user-1", "fp-2", sample("b")))
	require.NoError(t, c.Set(ctx, "user-2", "fp-1", sample("c")))

	require.NoError(t, c.InvalidateFor(ctx, "user-1"))

	_, ok := c.Get(ctx, "user-1", "fp-1")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "user-1", "fp-2")
	assert.False(t, ok)

	got, ok := c.Get(ctx, "user-2", "fp-1")
	require.True(t, ok, "other users' entries must survive")
	assert.Equal(t, "c", got[0].ID)
}
