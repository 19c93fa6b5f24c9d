package storecache

import (
	"context"
	"time"
)

// PingCacheName is the ping-service invalidation domain.
const PingCacheName = "ping-service"

// PingSettings is the per-store configuration of the payment ping service.
type PingSettings struct {
	StoreID  int64  `json:"storeId"`
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`
}

// PingSource loads ping settings.
type PingSource interface {
	PingSettings(ctx context.Context, storeID int64) (PingSettings, error)
}

// PingCache caches ping settings per store.
type PingCache struct {
	*Cache[PingSettings]
	source PingSource
}

// NewPingCache builds a cache over source.
func NewPingCache(source PingSource, ttl time.Duration) *PingCache {
	return &PingCache{
		Cache:  New[PingSettings](PingCacheName, ttl),
		source: source,
	}
}

// Settings returns the store's ping settings.
func (c *PingCache) Settings(ctx context.Context, storeID int64) (PingSettings, error) {
	return c.Get(ctx, storeID, c.source.PingSettings)
}
