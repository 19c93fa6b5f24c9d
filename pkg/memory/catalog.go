package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	mapset "github.com/deckarep/golang-set/v2"
	productinfo "github.com/goliatone/go-productinfo"
	"github.com/goliatone/go-productinfo/pkg/invalidation"
	"github.com/goliatone/go-productinfo/pkg/storecache"
)

// ErrNotFound reports an id the catalog does not hold.
var ErrNotFound = errors.New("memory: not found")

type node struct {
	id         int64
	parentID   int64
	name       string
	attributes map[string]string
	variants   map[string]map[string]string
}

// Catalog is the shared state behind the collaborator views. It is safe for
// concurrent use.
type Catalog struct {
	mu            sync.RWMutex
	nodes         map[int64]node
	unpublished   mapset.Set[int64]
	failures      map[int64]error
	stores        map[int64]StoreFixture
	currencyOwner map[int64]int64
	languages     []LanguageFixture
	denied        mapset.Set[int64]

	fetches atomic.Int64
}

// New builds a catalog from fx.
func New(fx Fixture) (*Catalog, error) {
	c := &Catalog{
		nodes:         make(map[int64]node, len(fx.Nodes)),
		unpublished:   mapset.NewSet[int64](),
		failures:      map[int64]error{},
		stores:        make(map[int64]StoreFixture, len(fx.Stores)),
		currencyOwner: map[int64]int64{},
		languages:     append([]LanguageFixture(nil), fx.Languages...),
		denied:        mapset.NewSet[int64](fx.DeniedNodes...),
	}
	for _, n := range fx.Nodes {
		c.putNode(n)
	}
	for _, store := range fx.Stores {
		c.putStore(store)
	}
	return c, nil
}

// PutNode inserts or replaces a node.
func (c *Catalog) PutNode(n NodeFixture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putNode(n)
}

func (c *Catalog) putNode(n NodeFixture) {
	variants := make(map[string]map[string]string, len(n.Variants))
	for key, values := range n.Variants {
		variants[key] = cloneStrings(values)
	}
	c.nodes[n.ID] = node{
		id:         n.ID,
		parentID:   n.ParentID,
		name:       n.Name,
		attributes: cloneStrings(n.Attributes),
		variants:   variants,
	}
	if n.IsPublished() {
		c.unpublished.Remove(n.ID)
	} else {
		c.unpublished.Add(n.ID)
	}
}

// SetPublished toggles whether the published tree serves id.
func (c *Catalog) SetPublished(id int64, published bool) {
	if published {
		c.unpublished.Remove(id)
		return
	}
	c.unpublished.Add(id)
}

// SetAttribute sets one attribute on a node. An empty value removes it.
func (c *Catalog) SetAttribute(id int64, alias, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	if !ok {
		return fmt.Errorf("memory: node %d: %w", id, ErrNotFound)
	}
	attrs := cloneStrings(n.attributes)
	if attrs == nil {
		attrs = map[string]string{}
	}
	if value == "" {
		delete(attrs, alias)
	} else {
		attrs[alias] = value
	}
	n.attributes = attrs
	c.nodes[id] = n
	return nil
}

// FailFetch makes repository reads of id fail with err. A nil err clears the
// failure.
func (c *Catalog) FailFetch(id int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, id)
		return
	}
	c.failures[id] = err
}

// Fetches returns the number of repository node reads so far.
func (c *Catalog) Fetches() int64 {
	return c.fetches.Load()
}

// PutStore inserts or replaces a store and its currencies.
func (c *Catalog) PutStore(store StoreFixture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putStore(store)
}

func (c *Catalog) putStore(store StoreFixture) {
	if old, ok := c.stores[store.ID]; ok {
		for _, currency := range old.Currencies {
			delete(c.currencyOwner, currency.ID)
		}
	}
	for i := range store.Currencies {
		store.Currencies[i].StoreID = store.ID
		c.currencyOwner[store.Currencies[i].ID] = store.ID
	}
	for i := range store.VatGroups {
		store.VatGroups[i].StoreID = store.ID
	}
	c.stores[store.ID] = store
}

// SetPropertyAliases replaces the product property aliases of a store.
func (c *Catalog) SetPropertyAliases(storeID int64, aliases ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	store, ok := c.stores[storeID]
	if !ok {
		return fmt.Errorf("memory: store %d: %w", storeID, ErrNotFound)
	}
	store.ProductPropertyAliases = append([]string(nil), aliases...)
	c.stores[storeID] = store
	return nil
}

// RemoveCurrency drops a currency from its store. The owner index keeps the
// currency so a later removal signal can still be scoped to its store.
func (c *Catalog) RemoveCurrency(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	storeID, ok := c.currencyOwner[id]
	if !ok {
		return fmt.Errorf("memory: currency %d: %w", id, ErrNotFound)
	}
	store := c.stores[storeID]
	kept := store.Currencies[:0:0]
	for _, currency := range store.Currencies {
		if currency.ID != id {
			kept = append(kept, currency)
		}
	}
	store.Currencies = kept
	c.stores[storeID] = store
	return nil
}

// record flattens a node, computing its path from the root. Callers hold mu.
func (c *Catalog) record(n node) productinfo.NodeRecord {
	path := []int64{n.id}
	seen := mapset.NewThreadUnsafeSet(n.id)
	parent := n.parentID
	for parent != productinfo.NoParent {
		if !seen.Add(parent) {
			break
		}
		path = append(path, parent)
		p, ok := c.nodes[parent]
		if !ok {
			break
		}
		parent = p.parentID
	}
	path = append(path, productinfo.NoParent)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return productinfo.NodeRecord{
		ID:         n.id,
		ParentID:   n.parentID,
		Name:       n.name,
		Path:       path,
		Level:      len(path) - 1,
		Attributes: cloneStrings(n.attributes),
	}
}

// Tree returns the published tree view.
func (c *Catalog) Tree() *Tree { return &Tree{c: c} }

// Repository returns the live content repository view.
func (c *Catalog) Repository() *Repository { return &Repository{c: c} }

// StoreConfig returns the store configuration view.
func (c *Catalog) StoreConfig() *StoreConfig { return &StoreConfig{c: c} }

// Access returns the access control view.
func (c *Catalog) Access() *Access { return &Access{c: c} }

// CurrencyOwners returns the currency to store index.
func (c *Catalog) CurrencyOwners() *CurrencyOwners { return &CurrencyOwners{c: c} }

// PingSource returns the ping-service settings view.
func (c *Catalog) PingSource() *PingSource { return &PingSource{c: c} }

// Tree serves published nodes.
type Tree struct{ c *Catalog }

var _ productinfo.TreeStore = (*Tree)(nil)

// Lookup implements productinfo.TreeStore.
func (t *Tree) Lookup(_ context.Context, id int64) (productinfo.NodeRecord, bool) {
	t.c.mu.RLock()
	defer t.c.mu.RUnlock()
	n, ok := t.c.nodes[id]
	if !ok || t.c.unpublished.Contains(id) {
		return productinfo.NodeRecord{}, false
	}
	return t.c.record(n), true
}

// Repository serves every node, published or not.
type Repository struct{ c *Catalog }

var _ productinfo.ContentRepository = (*Repository)(nil)

// FetchNode implements productinfo.ContentRepository.
func (r *Repository) FetchNode(ctx context.Context, id int64) (productinfo.NodeRecord, error) {
	r.c.fetches.Add(1)
	if err := ctx.Err(); err != nil {
		return productinfo.NodeRecord{}, err
	}
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	if err := r.c.failures[id]; err != nil {
		return productinfo.NodeRecord{}, err
	}
	n, ok := r.c.nodes[id]
	if !ok {
		return productinfo.NodeRecord{}, fmt.Errorf("memory: node %d: %w", id, ErrNotFound)
	}
	return r.c.record(n), nil
}

// FetchVariant implements productinfo.ContentRepository.
func (r *Repository) FetchVariant(_ context.Context, nodeID int64, variantKey string) (map[string]string, bool, error) {
	r.c.mu.RLock()
	defer r.c.mu.RUnlock()
	n, ok := r.c.nodes[nodeID]
	if !ok {
		return nil, false, nil
	}
	values, ok := n.variants[variantKey]
	if !ok {
		return nil, false, nil
	}
	return cloneStrings(values), true, nil
}

// StoreConfig serves store configuration.
type StoreConfig struct{ c *Catalog }

var _ productinfo.StoreConfig = (*StoreConfig)(nil)

func (s *StoreConfig) store(storeID int64) (StoreFixture, error) {
	store, ok := s.c.stores[storeID]
	if !ok {
		return StoreFixture{}, fmt.Errorf("memory: store %d: %w", storeID, ErrNotFound)
	}
	return store, nil
}

// CurrenciesForStore implements productinfo.StoreConfig.
func (s *StoreConfig) CurrenciesForStore(_ context.Context, storeID int64) ([]productinfo.Currency, error) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	store, err := s.store(storeID)
	if err != nil {
		return nil, err
	}
	return append([]productinfo.Currency(nil), store.Currencies...), nil
}

// VatGroup implements productinfo.StoreConfig.
func (s *StoreConfig) VatGroup(_ context.Context, storeID, id int64) (productinfo.VatGroup, bool, error) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	store, err := s.store(storeID)
	if err != nil {
		return productinfo.VatGroup{}, false, err
	}
	for _, group := range store.VatGroups {
		if group.ID == id {
			return group, true, nil
		}
	}
	return productinfo.VatGroup{}, false, nil
}

// ProductPropertyAliases implements productinfo.StoreConfig.
func (s *StoreConfig) ProductPropertyAliases(_ context.Context, storeID int64) ([]string, error) {
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	store, err := s.store(storeID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), store.ProductPropertyAliases...), nil
}

// LanguageIDForPath implements productinfo.StoreConfig. The language of the
// deepest root on the path wins.
func (s *StoreConfig) LanguageIDForPath(_ context.Context, path string) (int64, bool, error) {
	ids, err := parsePath(path)
	if err != nil {
		return 0, false, err
	}
	s.c.mu.RLock()
	defer s.c.mu.RUnlock()
	for i := len(ids) - 1; i >= 0; i-- {
		for _, lang := range s.c.languages {
			if lang.RootID == ids[i] {
				return lang.ID, true, nil
			}
		}
	}
	return 0, false, nil
}

// Access denies nodes listed in the fixture and their descendants.
type Access struct{ c *Catalog }

var _ productinfo.AccessControl = (*Access)(nil)

// HasAccess implements productinfo.AccessControl.
func (a *Access) HasAccess(_ context.Context, nodeID int64, path string) (bool, error) {
	ids, err := parsePath(path)
	if err != nil {
		return false, err
	}
	if a.c.denied.Contains(nodeID) {
		return false, nil
	}
	for _, id := range ids {
		if a.c.denied.Contains(id) {
			return false, nil
		}
	}
	return true, nil
}

// CurrencyOwners resolves currency ids to their store.
type CurrencyOwners struct{ c *Catalog }

var _ invalidation.OwnerResolver = (*CurrencyOwners)(nil)

// OwnerStore implements invalidation.OwnerResolver.
func (o *CurrencyOwners) OwnerStore(_ context.Context, currencyID int64) (int64, error) {
	o.c.mu.RLock()
	defer o.c.mu.RUnlock()
	storeID, ok := o.c.currencyOwner[currencyID]
	if !ok {
		return 0, fmt.Errorf("memory: currency %d: %w", currencyID, invalidation.ErrOwnerNotFound)
	}
	return storeID, nil
}

// PingSource serves ping-service settings.
type PingSource struct{ c *Catalog }

var _ storecache.PingSource = (*PingSource)(nil)

// PingSettings implements storecache.PingSource. Stores without settings get
// a disabled default.
func (p *PingSource) PingSettings(_ context.Context, storeID int64) (storecache.PingSettings, error) {
	p.c.mu.RLock()
	defer p.c.mu.RUnlock()
	store, ok := p.c.stores[storeID]
	if !ok {
		return storecache.PingSettings{}, fmt.Errorf("memory: store %d: %w", storeID, ErrNotFound)
	}
	if store.Ping == nil {
		return storecache.PingSettings{StoreID: storeID}, nil
	}
	settings := *store.Ping
	settings.StoreID = storeID
	return settings, nil
}

func parsePath(path string) ([]int64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("memory: path %q: %w", path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func cloneStrings(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
