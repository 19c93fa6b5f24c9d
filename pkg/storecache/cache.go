// Package storecache holds store scoped configuration caches. Each cache keeps
// one slice per store id so invalidations can clear a single store.
package storecache

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Loader fetches the value cached for a store.
type Loader[V any] func(ctx context.Context, storeID int64) (V, error)

// Cache is a ttl cache keyed by store id. Load failures are returned to the
// caller and never cached.
type Cache[V any] struct {
	name  string
	cache *ttlcache.Cache[int64, V]
}

// New creates a cache and starts its expiry goroutine. Call Close to stop it.
func New[V any](name string, ttl time.Duration) *Cache[V] {
	cache := ttlcache.New(
		ttlcache.WithTTL[int64, V](ttl),
	)
	go cache.Start()
	return &Cache[V]{name: name, cache: cache}
}

// Name identifies the cached domain.
func (c *Cache[V]) Name() string {
	return c.name
}

// Get returns the store's cached slice, loading it on a miss.
func (c *Cache[V]) Get(ctx context.Context, storeID int64, load Loader[V]) (V, error) {
	var loadErr error
	loader := ttlcache.LoaderFunc[int64, V](
		func(cache *ttlcache.Cache[int64, V], key int64) *ttlcache.Item[int64, V] {
			value, err := load(ctx, key)
			if err != nil {
				loadErr = err
				return nil
			}
			return cache.Set(key, value, ttlcache.DefaultTTL)
		},
	)
	item := c.cache.Get(storeID, ttlcache.WithLoader[int64, V](loader))
	if item == nil {
		var zero V
		if loadErr == nil {
			loadErr = errors.New("storecache: " + c.name + ": loader returned nothing")
		}
		return zero, loadErr
	}
	return item.Value(), nil
}

// Has reports whether the store's slice is cached.
func (c *Cache[V]) Has(storeID int64) bool {
	return c.cache.Has(storeID)
}

// Len returns the number of cached store slices.
func (c *Cache[V]) Len() int {
	return c.cache.Len()
}

// ClearStore drops one store's slice. Clearing an absent slice is a no-op.
func (c *Cache[V]) ClearStore(_ context.Context, storeID int64) error {
	c.cache.Delete(storeID)
	return nil
}

// ClearAll drops every store's slice.
func (c *Cache[V]) ClearAll(_ context.Context) error {
	c.cache.DeleteAll()
	return nil
}

// Close stops the cache background goroutine and releases resources.
func (c *Cache[V]) Close() {
	c.cache.Stop()
}
