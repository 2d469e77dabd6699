package trust

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dragoonbuster/MeatSocial/internal/platform/redis"
	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

const cacheKeyPrefix = "trust:score:"

// Cache is a read-through cache for computed trust scores. Entries expire on
// their own; writes after verification events simply overwrite. A nil Cache
// is a valid no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached score for the user, or false on miss. Transport
// errors count as misses; the score is recomputable.
func (c *Cache) Get(ctx context.Context, userID string) (models.TrustScore, bool) {
	if c == nil {
		return models.TrustScore{}, false
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+userID).Bytes()
	if err != nil {
		return models.TrustScore{}, false
	}
	var score models.TrustScore
	if err := json.Unmarshal(raw, &score); err != nil {
		return models.TrustScore{}, false
	}
	return score, true
}

// Set stores the score best-effort. Failures are ignored for the same reason
// Get treats errors as misses.
func (c *Cache) Set(ctx context.Context, score models.TrustScore) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(score)
	if err != nil {
		return
	}
	c.client.Set(ctx, cacheKeyPrefix+score.UserID, raw, c.ttl)
}

// Invalidate drops the cached score, used when a verification event changes
// the inputs before the TTL would catch up.
func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, cacheKeyPrefix+userID)
}
