package productinfo

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ProgramCache stores compiled selector programs keyed by engine and
// expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache used by the default evaluators.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *engineConfig) {
		cfg.programCache = cache
	}
}

// TTLProgramCache is a bounded ProgramCache backed by ttlcache. Entries expire
// after ttl without access, and the least recently used entry is evicted once
// capacity is reached.
type TTLProgramCache struct {
	cache *ttlcache.Cache[string, any]
}

// NewProgramCache builds a TTLProgramCache. A zero ttl disables expiry and a
// zero capacity disables eviction.
func NewProgramCache(capacity uint64, ttl time.Duration) *TTLProgramCache {
	opts := []ttlcache.Option[string, any]{
		ttlcache.WithTTL[string, any](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, any](capacity))
	}
	return &TTLProgramCache{cache: ttlcache.New(opts...)}
}

func (c *TTLProgramCache) Get(key string) (any, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *TTLProgramCache) Set(key string, value any) {
	c.cache.Set(key, value, ttlcache.DefaultTTL)
}

// Len reports the number of cached programs.
func (c *TTLProgramCache) Len() int {
	return c.cache.Len()
}
