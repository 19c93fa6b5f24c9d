package memory_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	productinfo "github.com/goliatone/go-productinfo"
	"github.com/goliatone/go-productinfo/pkg/invalidation"
	"github.com/goliatone/go-productinfo/pkg/memory"
)

func loadCatalog(t *testing.T) *memory.Catalog {
	t.Helper()
	catalog, err := memory.LoadFile(filepath.Join("..", "..", "testdata", "catalog.json"))
	if err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return catalog
}

func TestTreeComputesPathAndLevel(t *testing.T) {
	catalog := loadCatalog(t)

	rec, ok := catalog.Tree().Lookup(context.Background(), 4)
	if !ok {
		t.Fatalf("expected published node 4")
	}
	if got := rec.PathString(); got != "-1,1,2,3,4" {
		t.Fatalf("unexpected path %q", got)
	}
	if rec.Level != 4 {
		t.Fatalf("expected level 4, got %d", rec.Level)
	}
	if rec.Attributes["priceDKK"] != "149" {
		t.Fatalf("expected numeric attribute stringified, got %q", rec.Attributes["priceDKK"])
	}
}

func TestTreeHidesUnpublishedNodes(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	if _, ok := catalog.Tree().Lookup(ctx, 6); ok {
		t.Fatalf("expected unpublished node hidden from tree")
	}
	rec, err := catalog.Repository().FetchNode(ctx, 6)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if rec.Attributes["sku"] != "DRAFT-1" {
		t.Fatalf("unexpected record %+v", rec)
	}

	catalog.SetPublished(6, true)
	if _, ok := catalog.Tree().Lookup(ctx, 6); !ok {
		t.Fatalf("expected node visible once published")
	}
}

func TestRepositoryFailuresAndCounting(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()
	boom := errors.New("timeout")

	catalog.FailFetch(3, boom)
	if _, err := catalog.Repository().FetchNode(ctx, 3); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	catalog.FailFetch(3, nil)
	if _, err := catalog.Repository().FetchNode(ctx, 3); err != nil {
		t.Fatalf("expected failure cleared, got %v", err)
	}
	if _, err := catalog.Repository().FetchNode(ctx, 999); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if catalog.Fetches() != 3 {
		t.Fatalf("expected 3 fetches, got %d", catalog.Fetches())
	}
}

func TestRepositoryVariants(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	values, ok, err := catalog.Repository().FetchVariant(ctx, 4, "xl")
	if err != nil || !ok {
		t.Fatalf("expected variant, got ok=%v err=%v", ok, err)
	}
	if values["sku"] != "SHIRT-BLUE-XL" {
		t.Fatalf("unexpected variant %+v", values)
	}
	values["sku"] = "mutated"
	again, _, _ := catalog.Repository().FetchVariant(ctx, 4, "xl")
	if again["sku"] != "SHIRT-BLUE-XL" {
		t.Fatalf("expected variant values copied")
	}
	if _, ok, _ := catalog.Repository().FetchVariant(ctx, 4, "xxl"); ok {
		t.Fatalf("expected unknown variant key to miss")
	}
}

func TestStoreConfig(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()
	cfg := catalog.StoreConfig()

	currencies, err := cfg.CurrenciesForStore(ctx, 1)
	if err != nil {
		t.Fatalf("currencies: %v", err)
	}
	if len(currencies) != 2 || currencies[0].StoreID != 1 || currencies[1].PricePropertyAlias != "priceDKK" {
		t.Fatalf("unexpected currencies %+v", currencies)
	}

	group, ok, err := cfg.VatGroup(ctx, 1, 11)
	if err != nil || !ok || !group.Deleted {
		t.Fatalf("expected deleted vat group, got %+v ok=%v err=%v", group, ok, err)
	}
	if _, ok, _ := cfg.VatGroup(ctx, 1, 99); ok {
		t.Fatalf("expected unknown vat group to miss")
	}

	aliases, err := cfg.ProductPropertyAliases(ctx, 1)
	if err != nil || !reflect.DeepEqual(aliases, []string{"color", "material"}) {
		t.Fatalf("unexpected aliases %v err=%v", aliases, err)
	}

	if _, err := cfg.CurrenciesForStore(ctx, 42); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown store, got %v", err)
	}
}

func TestLanguageIDForPathUsesDeepestRoot(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	id, ok, err := catalog.StoreConfig().LanguageIDForPath(ctx, "-1,20,21")
	if err != nil || !ok || id != 2 {
		t.Fatalf("expected language 2, got %d ok=%v err=%v", id, ok, err)
	}
	if _, ok, _ := catalog.StoreConfig().LanguageIDForPath(ctx, "-1,30"); ok {
		t.Fatalf("expected no language for orphan section")
	}
	if _, _, err := catalog.StoreConfig().LanguageIDForPath(ctx, "-1,x"); err == nil {
		t.Fatalf("expected malformed path error")
	}
}

func TestAccessDeniesSubtree(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	allowed, err := catalog.Access().HasAccess(ctx, 8, "-1,1,7,8")
	if err != nil || allowed {
		t.Fatalf("expected denied descendant, got %v err=%v", allowed, err)
	}
	allowed, err = catalog.Access().HasAccess(ctx, 4, "-1,1,2,3,4")
	if err != nil || !allowed {
		t.Fatalf("expected access, got %v err=%v", allowed, err)
	}
}

func TestCurrencyOwnersSurviveRemoval(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	if err := catalog.RemoveCurrency(2); err != nil {
		t.Fatalf("remove currency: %v", err)
	}
	currencies, _ := catalog.StoreConfig().CurrenciesForStore(ctx, 1)
	if len(currencies) != 1 {
		t.Fatalf("expected currency removed, got %+v", currencies)
	}
	storeID, err := catalog.CurrencyOwners().OwnerStore(ctx, 2)
	if err != nil || storeID != 1 {
		t.Fatalf("expected owner kept for removed currency, got %d err=%v", storeID, err)
	}
	if _, err := catalog.CurrencyOwners().OwnerStore(ctx, 77); !errors.Is(err, invalidation.ErrOwnerNotFound) {
		t.Fatalf("expected ErrOwnerNotFound, got %v", err)
	}
}

func TestPingSource(t *testing.T) {
	catalog := loadCatalog(t)
	ctx := context.Background()

	settings, err := catalog.PingSource().PingSettings(ctx, 2)
	if err != nil || !settings.Enabled || settings.StoreID != 2 {
		t.Fatalf("unexpected ping settings %+v err=%v", settings, err)
	}
	settings, err = catalog.PingSource().PingSettings(ctx, 1)
	if err != nil || settings.Enabled {
		t.Fatalf("expected disabled default, got %+v err=%v", settings, err)
	}
}

func TestLoadRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"unknown parent": `{"nodes":[{"id":1,"parentId":5,"name":"x"}],"stores":[]}`,
		"duplicate id":   `{"nodes":[{"id":1,"parentId":-1},{"id":1,"parentId":-1}],"stores":[]}`,
		"unknown field":  `{"nodes":[],"stores":[],"extra":true}`,
		"shared currency": `{"nodes":[],"stores":[
			{"id":1,"currencies":[{"id":1,"pricePropertyAlias":"p"}]},
			{"id":2,"currencies":[{"id":1,"pricePropertyAlias":"p"}]}]}`,
		"object attribute": `{"nodes":[{"id":1,"parentId":-1,"attributes":{"x":{"y":1}}}],"stores":[]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := memory.Load([]byte(raw), name+".json"); err == nil {
				t.Fatalf("expected error")
			} else if !strings.Contains(err.Error(), name+".json") {
				t.Fatalf("expected source in error, got %v", err)
			}
		})
	}
}

func TestSetAttribute(t *testing.T) {
	catalog, err := memory.New(memory.Fixture{Nodes: []memory.NodeFixture{{ID: 1, ParentID: productinfo.NoParent, Name: "root"}}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := catalog.SetAttribute(1, "sku", "A"); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, _ := catalog.Tree().Lookup(context.Background(), 1)
	if rec.Attributes["sku"] != "A" {
		t.Fatalf("expected attribute set, got %+v", rec.Attributes)
	}
	if err := catalog.SetAttribute(1, "sku", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rec, _ = catalog.Tree().Lookup(context.Background(), 1)
	if _, ok := rec.Attributes["sku"]; ok {
		t.Fatalf("expected attribute removed")
	}
	if err := catalog.SetAttribute(2, "sku", "A"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPropertyAliases(t *testing.T) {
	catalog := loadCatalog(t)
	if err := catalog.SetPropertyAliases(1, "color"); err != nil {
		t.Fatalf("set: %v", err)
	}
	aliases, err := catalog.StoreConfig().ProductPropertyAliases(context.Background(), 1)
	if err != nil {
		t.Fatalf("aliases: %v", err)
	}
	if !reflect.DeepEqual(aliases, []string{"color"}) {
		t.Fatalf("unexpected aliases %v", aliases)
	}
	if err := catalog.SetPropertyAliases(99, "color"); !errors.Is(err, memory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
