package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	productinfo "github.com/goliatone/go-productinfo"
	"github.com/goliatone/go-productinfo/internal/hydrate"
	"github.com/goliatone/go-productinfo/pkg/storecache"
)

// Fixture is the JSON shape of a catalogue.
type Fixture struct {
	Nodes       []NodeFixture     `json:"nodes"`
	Stores      []StoreFixture    `json:"stores"`
	Languages   []LanguageFixture `json:"languages,omitempty"`
	DeniedNodes []int64           `json:"deniedNodes,omitempty"`
}

// NodeFixture is one content node. Published defaults to true.
type NodeFixture struct {
	ID         int64                        `json:"id"`
	ParentID   int64                        `json:"parentId"`
	Name       string                       `json:"name"`
	Published  *bool                        `json:"published,omitempty"`
	Attributes map[string]string            `json:"attributes,omitempty"`
	Variants   map[string]map[string]string `json:"variants,omitempty"`
}

// IsPublished reports whether the node appears in the published tree.
func (n NodeFixture) IsPublished() bool {
	return n.Published == nil || *n.Published
}

// StoreFixture is one store and its configuration.
type StoreFixture struct {
	ID                     int64                    `json:"id"`
	Name                   string                   `json:"name,omitempty"`
	ProductPropertyAliases []string                 `json:"productPropertyAliases,omitempty"`
	Currencies             []productinfo.Currency   `json:"currencies,omitempty"`
	VatGroups              []productinfo.VatGroup   `json:"vatGroups,omitempty"`
	Ping                   *storecache.PingSettings `json:"ping,omitempty"`
}

// LanguageFixture assigns a language to the subtree rooted at RootID.
type LanguageFixture struct {
	ID     int64 `json:"id"`
	RootID int64 `json:"rootId"`
}

// Load decodes a fixture and builds a catalog from it. source names the
// payload in errors.
func Load(raw []byte, source string) (*Catalog, error) {
	decoder := hydrate.NewDecoder[Fixture](
		hydrate.WithPreHook[Fixture](stringifyAttributes),
		hydrate.WithDisallowUnknownFields[Fixture](),
		hydrate.WithPostHook[Fixture](validateFixture),
	)
	fx, err := decoder.DecodeBytes(hydrate.Context{Source: source}, raw)
	if err != nil {
		return nil, err
	}
	return New(fx)
}

// LoadFile reads and loads a fixture file.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memory: read fixture: %w", err)
	}
	return Load(raw, filepath.Base(path))
}

// stringifyAttributes lets fixtures write prices and ids as JSON numbers or
// booleans; attributes are always strings once loaded.
func stringifyAttributes(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
	nodes, ok := payload["nodes"].([]any)
	if !ok {
		return payload, nil
	}
	for i, raw := range nodes {
		node, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("nodes[%d] is not an object", i)
		}
		if attrs, ok := node["attributes"].(map[string]any); ok {
			if err := stringifyMap(attrs); err != nil {
				return nil, fmt.Errorf("nodes[%d].attributes: %w", i, err)
			}
		}
		variants, ok := node["variants"].(map[string]any)
		if !ok {
			continue
		}
		for key, rawVariant := range variants {
			variant, ok := rawVariant.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("nodes[%d].variants.%s is not an object", i, key)
			}
			if err := stringifyMap(variant); err != nil {
				return nil, fmt.Errorf("nodes[%d].variants.%s: %w", i, key, err)
			}
		}
	}
	return payload, nil
}

func stringifyMap(values map[string]any) error {
	for key, value := range values {
		switch v := value.(type) {
		case string:
		case float64:
			values[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			values[key] = strconv.FormatBool(v)
		case nil:
			values[key] = ""
		default:
			return fmt.Errorf("%s has unsupported type %T", key, value)
		}
	}
	return nil
}

func validateFixture(_ hydrate.Context, fx *Fixture) error {
	ids := make(map[int64]struct{}, len(fx.Nodes))
	for _, node := range fx.Nodes {
		if node.ID <= 0 {
			return fmt.Errorf("node id %d must be positive", node.ID)
		}
		if _, dup := ids[node.ID]; dup {
			return fmt.Errorf("duplicate node id %d", node.ID)
		}
		ids[node.ID] = struct{}{}
	}
	for _, node := range fx.Nodes {
		if node.ParentID == productinfo.NoParent {
			continue
		}
		if _, ok := ids[node.ParentID]; !ok {
			return fmt.Errorf("node %d has unknown parent %d", node.ID, node.ParentID)
		}
	}
	stores := make(map[int64]struct{}, len(fx.Stores))
	currencies := map[int64]struct{}{}
	for _, store := range fx.Stores {
		if _, dup := stores[store.ID]; dup {
			return fmt.Errorf("duplicate store id %d", store.ID)
		}
		stores[store.ID] = struct{}{}
		for _, currency := range store.Currencies {
			if _, dup := currencies[currency.ID]; dup {
				return fmt.Errorf("currency %d belongs to more than one store", currency.ID)
			}
			currencies[currency.ID] = struct{}{}
		}
	}
	return nil
}
