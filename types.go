package productinfo

import (
	"context"
	"strconv"
	"strings"
)

// NoParent is the parent id recorded on the root of the content tree.
const NoParent int64 = -1

// NodeRecord is the flattened view of one content node, as served by both the
// published tree snapshot and the live content repository.
type NodeRecord struct {
	ID         int64
	ParentID   int64
	Name       string
	Path       []int64
	Level      int
	Attributes map[string]string
}

func (r NodeRecord) clone() NodeRecord {
	out := r
	if r.Path != nil {
		out.Path = append([]int64(nil), r.Path...)
	}
	out.Attributes = cloneAttributes(r.Attributes)
	return out
}

// PathString renders Path the way path aliases and language lookups expect
// it: comma separated ids, root first.
func (r NodeRecord) PathString() string {
	if len(r.Path) == 0 {
		return ""
	}
	parts := make([]string, len(r.Path))
	for i, id := range r.Path {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// TreeStore is the fast, in-memory snapshot of published content.
type TreeStore interface {
	Lookup(ctx context.Context, id int64) (NodeRecord, bool)
}

// ContentRepository reads live (possibly unpublished) content one node at a
// time.
type ContentRepository interface {
	FetchNode(ctx context.Context, id int64) (NodeRecord, error)
	FetchVariant(ctx context.Context, nodeID int64, variantKey string) (map[string]string, bool, error)
}

// StoreConfig exposes the store scoped configuration needed to build
// snapshots.
type StoreConfig interface {
	CurrenciesForStore(ctx context.Context, storeID int64) ([]Currency, error)
	VatGroup(ctx context.Context, storeID, id int64) (VatGroup, bool, error)
	ProductPropertyAliases(ctx context.Context, storeID int64) ([]string, error)
	LanguageIDForPath(ctx context.Context, path string) (int64, bool, error)
}

// AccessControl decides whether the current principal may see a node.
type AccessControl interface {
	HasAccess(ctx context.Context, nodeID int64, path string) (bool, error)
}

// Currency is a store currency and the attribute alias holding its price.
type Currency struct {
	ID                 int64  `json:"id"`
	StoreID            int64  `json:"storeId"`
	Code               string `json:"code,omitempty"`
	PricePropertyAlias string `json:"pricePropertyAlias"`
}

// VatGroup is a store tax group. Deleted groups stay addressable but must
// never be reported on a product.
type VatGroup struct {
	ID      int64  `json:"id"`
	StoreID int64  `json:"storeId"`
	Name    string `json:"name,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Aliases names the well-known product attributes.
type Aliases struct {
	Store          string `mapstructure:"store" json:"store"`
	SKU            string `mapstructure:"sku" json:"sku"`
	Name           string `mapstructure:"name" json:"name"`
	VatGroup       string `mapstructure:"vat_group" json:"vatGroup"`
	MasterRelation string `mapstructure:"master_relation" json:"masterRelation"`
}

// DefaultAliases returns the stock attribute aliases.
func DefaultAliases() Aliases {
	return Aliases{
		Store:          "store",
		SKU:            "sku",
		Name:           "productName",
		VatGroup:       "vatGroup",
		MasterRelation: "masterRelation",
	}
}

// Mode selects how ancestor lookups read the tree. The zero value reads the
// cached snapshot.
type Mode int

const (
	// ModeCached reads the published snapshot, falling back to the repository
	// only for nodes that failed to render.
	ModeCached Mode = iota
	// ModeUncached reads every node from the content repository.
	ModeUncached
)

func (m Mode) String() string {
	switch m {
	case ModeCached:
		return "cached"
	case ModeUncached:
		return "uncached"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "cached", "":
		*m = ModeCached
	case "uncached":
		*m = ModeUncached
	default:
		return &ConfigurationError{Alias: "mode", Err: errUnknownMode(string(text))}
	}
	return nil
}

// Query is one "get this property for this node" request.
type Query struct {
	Node       Node
	VariantKey string
	Alias      string
	Selector   string
	Mode       Mode
}

func cloneAttributes(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
