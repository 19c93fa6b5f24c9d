package storecache

import (
	"context"
	"time"

	productinfo "github.com/goliatone/go-productinfo"
)

// Cache names, also used as invalidation domains.
const (
	CurrencyCacheName = "currency"
	PropertyCacheName = "product-properties"
)

// CachedConfig decorates a StoreConfig with store scoped caches for the
// lookups the snapshot builder repeats on every product.
type CachedConfig struct {
	next       productinfo.StoreConfig
	currencies *Cache[[]productinfo.Currency]
	properties *Cache[[]string]
}

var _ productinfo.StoreConfig = (*CachedConfig)(nil)

// NewCachedConfig wraps next.
func NewCachedConfig(next productinfo.StoreConfig, ttl time.Duration) *CachedConfig {
	return &CachedConfig{
		next:       next,
		currencies: New[[]productinfo.Currency](CurrencyCacheName, ttl),
		properties: New[[]string](PropertyCacheName, ttl),
	}
}

// CurrencyCache exposes the currency slices for invalidation.
func (c *CachedConfig) CurrencyCache() *Cache[[]productinfo.Currency] {
	return c.currencies
}

// PropertyCache exposes the product property alias slices for invalidation.
func (c *CachedConfig) PropertyCache() *Cache[[]string] {
	return c.properties
}

// CurrenciesForStore implements productinfo.StoreConfig.
func (c *CachedConfig) CurrenciesForStore(ctx context.Context, storeID int64) ([]productinfo.Currency, error) {
	currencies, err := c.currencies.Get(ctx, storeID, c.next.CurrenciesForStore)
	if err != nil {
		return nil, err
	}
	return append([]productinfo.Currency(nil), currencies...), nil
}

// ProductPropertyAliases implements productinfo.StoreConfig.
func (c *CachedConfig) ProductPropertyAliases(ctx context.Context, storeID int64) ([]string, error) {
	aliases, err := c.properties.Get(ctx, storeID, c.next.ProductPropertyAliases)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), aliases...), nil
}

// VatGroup implements productinfo.StoreConfig. VAT groups are read through.
func (c *CachedConfig) VatGroup(ctx context.Context, storeID, id int64) (productinfo.VatGroup, bool, error) {
	return c.next.VatGroup(ctx, storeID, id)
}

// LanguageIDForPath implements productinfo.StoreConfig.
func (c *CachedConfig) LanguageIDForPath(ctx context.Context, path string) (int64, bool, error) {
	return c.next.LanguageIDForPath(ctx, path)
}

// Close stops every cache.
func (c *CachedConfig) Close() {
	c.currencies.Close()
	c.properties.Close()
}
