package productinfo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Extractor assembles product information from the content tree. Every
// accessor works on its own clone of the node handle, so accessors can be
// called in any order, or concurrently, with identical results.
type Extractor struct {
	engine *Engine
	store  StoreConfig
	access AccessControl
	logger *slog.Logger
}

// NewExtractor wires an extractor. access may be nil when HasAccess is not
// used.
func NewExtractor(engine *Engine, store StoreConfig, access AccessControl) (*Extractor, error) {
	if engine == nil {
		return nil, fmt.Errorf("productinfo: engine is required")
	}
	if store == nil {
		return nil, fmt.Errorf("productinfo: store config is required")
	}
	return &Extractor{
		engine: engine,
		store:  store,
		access: access,
		logger: engine.cfg.logger,
	}, nil
}

// Engine returns the resolution engine backing the extractor.
func (x *Extractor) Engine() *Engine {
	return x.engine
}

// PropertyValue resolves alias for node, returning "" when nothing resolves.
func (x *Extractor) PropertyValue(ctx context.Context, node Node, variantKey, alias, selector string, mode Mode) string {
	return x.engine.Value(ctx, Query{
		Node:       node.Clone(),
		VariantKey: variantKey,
		Alias:      alias,
		Selector:   selector,
		Mode:       mode,
	})
}

// StoreID resolves the store the node belongs to. A node without a store id
// is a configuration error; there is no default store.
func (x *Extractor) StoreID(ctx context.Context, node Node, mode Mode) (int64, error) {
	if node.IsZero() {
		return 0, ErrNodeNotFound
	}
	alias := x.engine.cfg.config.Aliases.Store
	res := x.engine.Resolve(ctx, Query{Node: node.Clone(), Alias: alias, Mode: mode})
	nodeID, _ := node.ID()
	if res.Status == StatusTransientError {
		return 0, &ConfigurationError{
			NodeID: nodeID,
			Alias:  alias,
			Err:    fmt.Errorf("%w: %w", ErrStoreNotConfigured, ErrContentUnavailable),
		}
	}
	if !res.Found() {
		return 0, &ConfigurationError{NodeID: nodeID, Alias: alias, Err: ErrStoreNotConfigured}
	}
	storeID, err := strconv.ParseInt(strings.TrimSpace(res.Value), 10, 64)
	if err != nil {
		return 0, &ConfigurationError{
			NodeID: nodeID,
			Alias:  alias,
			Err:    fmt.Errorf("%w: store id %q is not a number", ErrStoreNotConfigured, res.Value),
		}
	}
	return storeID, nil
}

// SKU resolves the SKU, defaulting to the node id suffixed with the variant
// key.
func (x *Extractor) SKU(ctx context.Context, node Node, variantKey string, mode Mode) string {
	sku := x.PropertyValue(ctx, node, variantKey, x.engine.cfg.config.Aliases.SKU, "", mode)
	if sku != "" {
		return sku
	}
	sku = x.PropertyValue(ctx, node, "", FieldNameID, "", mode)
	if variantKey != "" {
		sku += "_" + variantKey
	}
	return sku
}

// Name resolves the product name, defaulting to the node name.
func (x *Extractor) Name(ctx context.Context, node Node, variantKey string, mode Mode) string {
	name := x.PropertyValue(ctx, node, variantKey, x.engine.cfg.config.Aliases.Name, "", mode)
	if name != "" {
		return name
	}
	return x.PropertyValue(ctx, node, "", FieldNameNodeName, "", mode)
}

// VatGroupID resolves the VAT group. A reference that does not parse, names
// an unknown group or names a deleted group is reported as absent.
func (x *Extractor) VatGroupID(ctx context.Context, node Node, variantKey string, mode Mode) (int64, bool, error) {
	storeID, err := x.StoreID(ctx, node, mode)
	if err != nil {
		return 0, false, err
	}
	return x.vatGroupID(ctx, node, storeID, variantKey, mode)
}

func (x *Extractor) vatGroupID(ctx context.Context, node Node, storeID int64, variantKey string, mode Mode) (int64, bool, error) {
	value := x.PropertyValue(ctx, node, variantKey, x.engine.cfg.config.Aliases.VatGroup, "", mode)
	if value == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		x.logger.DebugContext(ctx, "vat group reference is not a number", slog.String("value", value))
		return 0, false, nil
	}
	group, ok, err := x.store.VatGroup(ctx, storeID, id)
	if err != nil {
		return 0, false, fmt.Errorf("productinfo: vat group %d for store %d: %w", id, storeID, err)
	}
	if !ok || group.Deleted {
		x.logger.DebugContext(ctx, "vat group not usable",
			slog.Int64("store_id", storeID),
			slog.Int64("vat_group_id", id),
			slog.Bool("known", ok))
		return 0, false, nil
	}
	return id, true, nil
}

// LanguageID resolves the language from the node path.
func (x *Extractor) LanguageID(ctx context.Context, node Node, mode Mode) (int64, bool, error) {
	path := x.PropertyValue(ctx, node, "", FieldNamePath, "", mode)
	id, ok, err := x.store.LanguageIDForPath(ctx, path)
	if err != nil {
		return 0, false, fmt.Errorf("productinfo: language for path %q: %w", path, err)
	}
	return id, ok, nil
}

// OriginalUnitPrices returns exactly one price per currency configured for
// the node's store. Missing or unparseable prices are zero.
func (x *Extractor) OriginalUnitPrices(ctx context.Context, node Node, variantKey string, mode Mode) ([]OriginalUnitPrice, error) {
	storeID, err := x.StoreID(ctx, node, mode)
	if err != nil {
		return nil, err
	}
	return x.originalUnitPrices(ctx, node, storeID, variantKey, mode)
}

func (x *Extractor) originalUnitPrices(ctx context.Context, node Node, storeID int64, variantKey string, mode Mode) ([]OriginalUnitPrice, error) {
	currencies, err := x.store.CurrenciesForStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("productinfo: currencies for store %d: %w", storeID, err)
	}
	prices := make([]OriginalUnitPrice, 0, len(currencies))
	for _, currency := range currencies {
		amount := decimal.Zero
		if currency.PricePropertyAlias != "" {
			amount = parsePrice(x.PropertyValue(ctx, node, variantKey, currency.PricePropertyAlias, "", mode))
		}
		prices = append(prices, OriginalUnitPrice{CurrencyID: currency.ID, Amount: amount})
	}
	return prices, nil
}

// Properties returns one read-only entry per product property alias the store
// configures, in configured order, even when the value is empty.
func (x *Extractor) Properties(ctx context.Context, node Node, variantKey string, mode Mode) ([]CustomProperty, error) {
	storeID, err := x.StoreID(ctx, node, mode)
	if err != nil {
		return nil, err
	}
	return x.properties(ctx, node, storeID, variantKey, mode)
}

func (x *Extractor) properties(ctx context.Context, node Node, storeID int64, variantKey string, mode Mode) ([]CustomProperty, error) {
	aliases, err := x.store.ProductPropertyAliases(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("productinfo: product property aliases for store %d: %w", storeID, err)
	}
	props := make([]CustomProperty, 0, len(aliases))
	for _, alias := range aliases {
		props = append(props, CustomProperty{
			Alias:    alias,
			Value:    x.PropertyValue(ctx, node, variantKey, alias, "", mode),
			ReadOnly: true,
		})
	}
	return props, nil
}

// Snapshot resolves the store id first and then every other attribute,
// concurrently when the engine is configured with ParallelSnapshot.
func (x *Extractor) Snapshot(ctx context.Context, node Node, variantKey, productIdentifier string, mode Mode) (*ProductSnapshot, error) {
	storeID, err := x.StoreID(ctx, node, mode)
	if err != nil {
		return nil, err
	}
	snap := &ProductSnapshot{storeID: storeID, productIdentifier: productIdentifier}

	steps := []func(context.Context) error{
		func(ctx context.Context) error {
			snap.sku = x.SKU(ctx, node.Clone(), variantKey, mode)
			return nil
		},
		func(ctx context.Context) error {
			snap.name = x.Name(ctx, node.Clone(), variantKey, mode)
			return nil
		},
		func(ctx context.Context) error {
			id, ok, err := x.vatGroupID(ctx, node.Clone(), storeID, variantKey, mode)
			if ok {
				snap.vatGroupID = int64Ptr(id)
			}
			return err
		},
		func(ctx context.Context) error {
			id, ok, err := x.LanguageID(ctx, node.Clone(), mode)
			if ok {
				snap.languageID = int64Ptr(id)
			}
			return err
		},
		func(ctx context.Context) error {
			prices, err := x.originalUnitPrices(ctx, node.Clone(), storeID, variantKey, mode)
			snap.prices = prices
			return err
		},
		func(ctx context.Context) error {
			props, err := x.properties(ctx, node.Clone(), storeID, variantKey, mode)
			snap.properties = props
			return err
		},
	}

	if !x.engine.cfg.config.ParallelSnapshot {
		for _, step := range steps {
			if err := step(ctx); err != nil {
				return nil, err
			}
		}
		return snap, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error { return step(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// HasAccess reports whether node belongs to storeID and the access control
// collaborator grants access to it.
func (x *Extractor) HasAccess(ctx context.Context, storeID int64, node Node, mode Mode) (bool, error) {
	nodeStore, err := x.StoreID(ctx, node, mode)
	if err != nil {
		return false, err
	}
	if nodeStore != storeID {
		return false, nil
	}
	if x.access == nil {
		return false, fmt.Errorf("productinfo: access control is not configured")
	}
	idValue := x.PropertyValue(ctx, node, "", FieldNameID, "", mode)
	nodeID, err := strconv.ParseInt(idValue, 10, 64)
	if err != nil {
		return false, fmt.Errorf("productinfo: node id %q: %w", idValue, ErrNodeNotFound)
	}
	return x.access.HasAccess(ctx, nodeID, x.PropertyValue(ctx, node, "", FieldNamePath, "", mode))
}
