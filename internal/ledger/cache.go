package ledger

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	knownSetKey = "ledger:known"
	knownTTL    = 48 * time.Hour
)

// Cache is a Redis-backed set of known URLs. It is purely an accelerator:
// a miss falls through to the store, and the whole set expires so stale
// entries cannot outlive a cleared ledger for long.
type Cache struct {
	client *redis.Client
}

// NewCache wraps an existing Redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Contains reports set membership for the exact URL or its query-stripped
// form.
func (c *Cache) Contains(ctx context.Context, url string) (bool, error) {
	hits, err := c.client.SMIsMember(ctx, knownSetKey, url, stripQuery(url)).Result()
	if err != nil {
		return false, err
	}
	for _, hit := range hits {
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// Add records a URL as known and refreshes the set TTL.
func (c *Cache) Add(ctx context.Context, url string) error {
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, knownSetKey, url)
	pipe.Expire(ctx, knownSetKey, knownTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Flush drops the cached set entirely.
func (c *Cache) Flush(ctx context.Context) error {
	return c.client.Del(ctx, knownSetKey).Err()
}
