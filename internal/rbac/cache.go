package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces cache keys for role permission sets.
const DefaultKeyPrefix = "permbase:role_perms"

// LoaderFunc loads the current permission set for a role from the store.
type LoaderFunc func(ctx context.Context) ([]Permission, error)

// CacheMetrics receives cache outcome notifications.
type CacheMetrics interface {
	CacheHit()
	CacheMiss()
	CacheInvalidation()
}

// Cache is a read-through cache mapping a role ID to its ordered permission
// list. Entries live until the TTL elapses or an explicit Invalidate.
//
// Population is not deduplicated: concurrent misses on the same role may
// each invoke the loader, and a load racing an invalidation may repopulate
// the entry with a value that is stale relative to that invalidation. Both
// are bounded by the TTL.
type Cache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     func() time.Duration
	metrics CacheMetrics
}

// NewCache constructs a Cache. The ttl function is consulted on every
// population so configuration changes apply to subsequent entries.
func NewCache(client redis.UniversalClient, prefix string, ttl func() time.Duration) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// WithMetrics attaches outcome counters to the cache.
func (c *Cache) WithMetrics(metrics CacheMetrics) *Cache {
	c.metrics = metrics
	return c
}

// Key returns the cache key for a role.
func (c *Cache) Key(roleID int64) string {
	return fmt.Sprintf("%s_%d", c.prefix, roleID)
}

// Get returns the cached permission list for roleID, loading and storing it
// when no live entry exists. Loader and cache errors surface unchanged.
func (c *Cache) Get(ctx context.Context, roleID int64, loader LoaderFunc) ([]Permission, error) {
	key := c.Key(roleID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var perms []Permission
		if err := json.Unmarshal(payload, &perms); err != nil {
			return nil, fmt.Errorf("rbac: decode cached permissions: %w", err)
		}
		if c.metrics != nil {
			c.metrics.CacheHit()
		}
		return perms, nil
	}
	if err != redis.Nil {
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.CacheMiss()
	}

	perms, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return nil, fmt.Errorf("rbac: encode permissions: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl()).Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// Invalidate removes the entry for roleID. Deleting a missing key succeeds.
func (c *Cache) Invalidate(ctx context.Context, roleID int64) error {
	if err := c.client.Del(ctx, c.Key(roleID)).Err(); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.CacheInvalidation()
	}
	return nil
}
