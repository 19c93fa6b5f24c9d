package productinfo_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productinfo "github.com/goliatone/go-productinfo"
	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/goliatone/go-productinfo/pkg/invalidation"
	"github.com/goliatone/go-productinfo/pkg/memory"
	"github.com/goliatone/go-productinfo/pkg/storecache"
)

func newExtractor(t *testing.T, catalog *memory.Catalog, opts ...productinfo.Option) *productinfo.Extractor {
	t.Helper()
	extractor, err := productinfo.NewExtractor(newEngine(t, catalog, opts...), catalog.StoreConfig(), catalog.Access())
	require.NoError(t, err)
	return extractor
}

func prices(snap *productinfo.ProductSnapshot) map[int64]string {
	out := map[int64]string{}
	for _, price := range snap.OriginalUnitPrices() {
		out[price.CurrencyID] = price.Amount.String()
	}
	return out
}

func TestNewExtractorRequiresCollaborators(t *testing.T) {
	catalog := newCatalog(t)
	engine := newEngine(t, catalog)

	_, err := productinfo.NewExtractor(nil, catalog.StoreConfig(), nil)
	assert.Error(t, err)
	_, err = productinfo.NewExtractor(engine, nil, nil)
	assert.Error(t, err)

	extractor, err := productinfo.NewExtractor(engine, catalog.StoreConfig(), nil)
	require.NoError(t, err)
	assert.Same(t, engine, extractor.Engine())
}

func TestSnapshotProduct(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	for _, mode := range []productinfo.Mode{productinfo.ModeCached, productinfo.ModeUncached} {
		t.Run(mode.String(), func(t *testing.T) {
			snap, err := extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 4), "", "blue-shirt", mode)
			require.NoError(t, err)

			assert.Equal(t, int64(1), snap.StoreID())
			assert.Equal(t, "blue-shirt", snap.ProductIdentifier())
			assert.Equal(t, "SHIRT-BLUE", snap.SKU())
			assert.Equal(t, "Blue Shirt", snap.Name())

			vat, ok := snap.VatGroupID()
			require.True(t, ok)
			assert.Equal(t, int64(10), vat)

			lang, ok := snap.LanguageID()
			require.True(t, ok)
			assert.Equal(t, int64(1), lang)

			assert.Equal(t, map[int64]string{1: "19.95", 2: "149"}, prices(snap))
			assert.Equal(t, []productinfo.CustomProperty{
				{Alias: "color", Value: "blue", ReadOnly: true},
				{Alias: "material", Value: "cotton", ReadOnly: true},
			}, snap.Properties())
		})
	}
}

func TestSnapshotVariant(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	snap, err := extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 4), "xl", "blue-shirt-xl", productinfo.ModeCached)
	require.NoError(t, err)

	assert.Equal(t, "SHIRT-BLUE-XL", snap.SKU())
	assert.Equal(t, "Blue Shirt", snap.Name())
	price, ok := snap.Price(1)
	require.True(t, ok)
	assert.Equal(t, "21.95", price.String(), "comma decimal separator")
	price, ok = snap.Price(2)
	require.True(t, ok)
	assert.Equal(t, "149", price.String())
	value, ok := snap.Property("color")
	require.True(t, ok)
	assert.Equal(t, "blue", value)
}

func TestSnapshotDefaults(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	snap, err := extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 8), "", "socks", productinfo.ModeCached)
	require.NoError(t, err)

	assert.Equal(t, "8", snap.SKU(), "node id stands in for a missing sku")
	assert.Equal(t, "Old socks", snap.Name(), "node name stands in for a missing product name")
	_, ok := snap.VatGroupID()
	assert.False(t, ok, "deleted vat group is never reported")
	assert.Equal(t, map[int64]string{1: "0", 2: "0"}, prices(snap), "one zero price per store currency")
	assert.Equal(t, []productinfo.CustomProperty{
		{Alias: "color", Value: "", ReadOnly: true},
		{Alias: "material", Value: "", ReadOnly: true},
	}, snap.Properties())

	_, ok = snap.Price(3)
	assert.False(t, ok)
	_, ok = snap.Property("size")
	assert.False(t, ok)
}

func TestSnapshotSecondStore(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	snap, err := extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 21), "", "hat", productinfo.ModeCached)
	require.NoError(t, err)

	assert.Equal(t, int64(2), snap.StoreID())
	assert.Equal(t, "HAT", snap.SKU())
	assert.Equal(t, "Hat", snap.Name())
	assert.Equal(t, map[int64]string{3: "10"}, prices(snap))
	lang, ok := snap.LanguageID()
	require.True(t, ok)
	assert.Equal(t, int64(2), lang)
	_, ok = snap.VatGroupID()
	assert.False(t, ok)
}

func TestSnapshotUnknownVatGroup(t *testing.T) {
	catalog := newCatalog(t)
	require.NoError(t, catalog.SetAttribute(4, "vatGroup", "99"))
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	_, ok, err := extractor.VatGroupID(ctx, extractor.Engine().Node(ctx, 4), "", productinfo.ModeUncached)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, catalog.SetAttribute(4, "vatGroup", "ten"))
	_, ok, err = extractor.VatGroupID(ctx, extractor.Engine().Node(ctx, 4), "", productinfo.ModeUncached)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSKUVariantSuffix(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	assert.Equal(t, "3_m", extractor.SKU(ctx, extractor.Engine().Node(ctx, 3), "m", productinfo.ModeCached))
	assert.Equal(t, "3", extractor.SKU(ctx, extractor.Engine().Node(ctx, 3), "", productinfo.ModeCached))
}

func TestStoreIDErrors(t *testing.T) {
	catalog := newCatalog(t)
	catalog.FailFetch(6, errRepositoryDown)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	_, err := extractor.StoreID(ctx, productinfo.Node{}, productinfo.ModeCached)
	assert.ErrorIs(t, err, productinfo.ErrNodeNotFound)

	_, err = extractor.StoreID(ctx, extractor.Engine().Node(ctx, 30), productinfo.ModeCached)
	var cfgErr *productinfo.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, int64(30), cfgErr.NodeID)
	assert.Equal(t, "store", cfgErr.Alias)
	assert.ErrorIs(t, err, productinfo.ErrStoreNotConfigured)
	assert.NotErrorIs(t, err, productinfo.ErrContentUnavailable)

	_, err = extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 30), "", "orphan", productinfo.ModeCached)
	assert.ErrorIs(t, err, productinfo.ErrStoreNotConfigured)

	_, err = extractor.StoreID(ctx, extractor.Engine().Node(ctx, 6), productinfo.ModeCached)
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, productinfo.ErrStoreNotConfigured)
	assert.ErrorIs(t, err, productinfo.ErrContentUnavailable)
}

func TestStoreIDNotANumber(t *testing.T) {
	catalog := newCatalog(t)
	require.NoError(t, catalog.SetAttribute(20, "store", "us"))
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	_, err := extractor.StoreID(ctx, extractor.Engine().Node(ctx, 21), productinfo.ModeUncached)
	assert.ErrorIs(t, err, productinfo.ErrStoreNotConfigured)
}

func TestSnapshotParallelMatchesSequential(t *testing.T) {
	catalog := newCatalog(t)
	sequential := newExtractor(t, catalog)
	parallel := newExtractor(t, catalog, productinfo.WithParallelSnapshot(true))
	ctx := context.Background()

	for _, id := range []int64{4, 5, 8, 21, 22} {
		for _, variant := range []string{"", "xl"} {
			want, err := sequential.Snapshot(ctx, sequential.Engine().Node(ctx, id), variant, "p", productinfo.ModeCached)
			require.NoError(t, err)
			got, err := parallel.Snapshot(ctx, parallel.Engine().Node(ctx, id), variant, "p", productinfo.ModeCached)
			require.NoError(t, err)
			assert.Equal(t, want, got, "node %d variant %q", id, variant)
		}
	}
}

func TestSnapshotIsImmutable(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()

	snap, err := extractor.Snapshot(ctx, extractor.Engine().Node(ctx, 4), "", "p", productinfo.ModeCached)
	require.NoError(t, err)

	props := snap.Properties()
	props[0].Value = "changed"
	list := snap.OriginalUnitPrices()
	list[0].CurrencyID = 42

	value, _ := snap.Property("color")
	assert.Equal(t, "blue", value)
	_, ok := snap.Price(1)
	assert.True(t, ok)
}

func TestHasAccess(t *testing.T) {
	catalog := newCatalog(t)
	extractor := newExtractor(t, catalog)
	ctx := context.Background()
	node := func(id int64) productinfo.Node { return extractor.Engine().Node(ctx, id) }

	cases := []struct {
		name    string
		storeID int64
		node    productinfo.Node
		want    bool
	}{
		{name: "granted", storeID: 1, node: node(4), want: true},
		{name: "other store", storeID: 2, node: node(4), want: false},
		{name: "denied node", storeID: 1, node: node(7), want: false},
		{name: "denied ancestor", storeID: 1, node: node(8), want: false},
		{name: "second store", storeID: 2, node: node(21), want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := extractor.HasAccess(ctx, tc.storeID, tc.node, productinfo.ModeCached)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}

	_, err := extractor.HasAccess(ctx, 1, node(30), productinfo.ModeCached)
	assert.ErrorIs(t, err, productinfo.ErrStoreNotConfigured)

	noAccess, err := productinfo.NewExtractor(extractor.Engine(), catalog.StoreConfig(), nil)
	require.NoError(t, err)
	_, err = noAccess.HasAccess(ctx, 1, node(4), productinfo.ModeCached)
	assert.Error(t, err)
}

func TestSnapshotWithCachedConfigAndCurrencyRefresh(t *testing.T) {
	catalog := newCatalog(t)
	cached := storecache.NewCachedConfig(catalog.StoreConfig(), time.Hour)
	t.Cleanup(cached.Close)

	engine := newEngine(t, catalog)
	extractor, err := productinfo.NewExtractor(engine, cached, catalog.Access())
	require.NoError(t, err)
	ctx := context.Background()

	capture := &activity.CaptureHook{}
	refresher, err := invalidation.NewCurrencyRefresher(cached.CurrencyCache(), catalog.CurrencyOwners(), capture, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	snap, err := extractor.Snapshot(ctx, engine.Node(ctx, 4), "", "p", productinfo.ModeCached)
	require.NoError(t, err)
	require.Len(t, snap.OriginalUnitPrices(), 2)
	_, err = extractor.Snapshot(ctx, engine.Node(ctx, 21), "", "p", productinfo.ModeCached)
	require.NoError(t, err)

	require.NoError(t, catalog.RemoveCurrency(2))
	snap, err = extractor.Snapshot(ctx, engine.Node(ctx, 4), "", "p", productinfo.ModeCached)
	require.NoError(t, err)
	assert.Len(t, snap.OriginalUnitPrices(), 2, "cached currencies until refreshed")

	require.NoError(t, refresher.Remove(ctx, 2))
	assert.False(t, cached.CurrencyCache().Has(1))
	assert.True(t, cached.CurrencyCache().Has(2), "other stores keep their slice")

	snap, err = extractor.Snapshot(ctx, engine.Node(ctx, 4), "", "p", productinfo.ModeCached)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "19.95"}, prices(snap))

	events := capture.Snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, activity.VerbRemove, events[0].Verb)
	assert.Equal(t, storecache.CurrencyCacheName, events[0].Domain)
	assert.Equal(t, "1", events[0].StoreID)
	assert.Equal(t, "2", events[0].EntityID)
}

func TestSnapshotWithCachedConfigAndPropertyRefresh(t *testing.T) {
	catalog := newCatalog(t)
	cached := storecache.NewCachedConfig(catalog.StoreConfig(), time.Hour)
	t.Cleanup(cached.Close)

	engine := newEngine(t, catalog)
	extractor, err := productinfo.NewExtractor(engine, cached, catalog.Access())
	require.NoError(t, err)
	ctx := context.Background()

	aliases := func() []string {
		snap, err := extractor.Snapshot(ctx, engine.Node(ctx, 4), "", "p", productinfo.ModeCached)
		require.NoError(t, err)
		var out []string
		for _, prop := range snap.Properties() {
			out = append(out, prop.Alias)
		}
		return out
	}

	capture := &activity.CaptureHook{}
	properties, err := invalidation.NewPropertyRefresher(cached.PropertyCache(), capture, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	currencies, err := invalidation.NewCurrencyRefresher(cached.CurrencyCache(), catalog.CurrencyOwners(), nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.Equal(t, []string{"color", "material"}, aliases())
	_, err = extractor.Snapshot(ctx, engine.Node(ctx, 21), "", "p", productinfo.ModeCached)
	require.NoError(t, err)

	require.NoError(t, catalog.SetPropertyAliases(1, "color"))
	require.NoError(t, currencies.RefreshAll(ctx))
	assert.Equal(t, []string{"color", "material"}, aliases(), "other domains leave property lists alone")

	require.NoError(t, properties.Refresh(ctx, 1))
	assert.False(t, cached.PropertyCache().Has(1))
	assert.True(t, cached.PropertyCache().Has(2), "other stores keep their list")
	assert.Equal(t, []string{"color"}, aliases())

	require.NoError(t, catalog.SetPropertyAliases(1, "color", "material"))
	require.NoError(t, properties.RefreshAll(ctx))
	assert.Equal(t, []string{"color", "material"}, aliases())
	assert.False(t, cached.PropertyCache().Has(2))

	events := capture.Snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, activity.VerbRefresh, events[0].Verb)
	assert.Equal(t, storecache.PropertyCacheName, events[0].Domain)
	assert.Equal(t, activity.VerbRefreshAll, events[1].Verb)
}
