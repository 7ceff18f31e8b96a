package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Cache inside the process. Values are stored encoded
// so callers never share mutable state with the cache.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache with defaultTTL; expired items are purged
// every two TTLs
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &MemoryCache{store: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (c *MemoryCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok := c.store.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		c.store.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.store.Delete(key)
		return false, nil
	}
	return true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, data, ttl)
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		c.store.Delete(k)
	}
	return nil
}

// Len returns the number of items, expired ones included until purged
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}

var _ Cache = (*MemoryCache)(nil)
