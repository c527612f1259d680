package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"
)

// TieredCache keeps a short-lived in-process copy (L1) in front of Redis (L2).
// Redis is optional; without it the cache is process local.
type TieredCache struct {
	local *gocache.Cache
	redis *RedisCache
	l1TTL time.Duration
}

// NewTieredCache creates a tiered cache. l1TTL bounds how stale the local copy can get.
func NewTieredCache(redis *RedisCache, l1TTL time.Duration) *TieredCache {
	if l1TTL <= 0 {
		l1TTL = time.Minute
	}
	return &TieredCache{
		local: gocache.New(l1TTL, 2*l1TTL),
		redis: redis,
		l1TTL: l1TTL,
	}
}

// GetJSON looks in L1, then L2. An L2 hit is copied into L1.
func (c *TieredCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if raw, ok := c.local.Get(key); ok {
		return true, json.Unmarshal(raw.([]byte), dest)
	}
	if c.redis == nil {
		return false, nil
	}

	found, err := c.redis.GetJSON(ctx, key, dest)
	if err != nil || !found {
		return false, err
	}
	if data, err := json.Marshal(dest); err == nil {
		c.local.Set(key, data, c.l1TTL)
	}
	return true, nil
}

// SetJSON writes both tiers. The L1 copy never outlives ttl.
func (c *TieredCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	localTTL := c.l1TTL
	if ttl > 0 && ttl < localTTL {
		localTTL = ttl
	}
	c.local.Set(key, data, localTTL)

	if c.redis == nil {
		return nil
	}
	return c.redis.SetJSON(ctx, key, value, ttl)
}

// Delete removes key from both tiers.
func (c *TieredCache) Delete(ctx context.Context, key string) error {
	c.local.Delete(key)
	if c.redis == nil {
		return nil
	}
	return c.redis.Delete(ctx, key)
}

// LocalItems returns the number of entries held in process.
func (c *TieredCache) LocalItems() int {
	return c.local.ItemCount()
}
