package productinfo

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
)

// CachedResolver answers ancestor-or-self lookups from the published tree
// snapshot. It is pure and never returns an error: missing parents, parent
// cycles and failing selectors all end in not found.
type CachedResolver struct {
	tree TreeStore
}

// NewCachedResolver builds a resolver over tree.
func NewCachedResolver(tree TreeStore) *CachedResolver {
	return &CachedResolver{tree: tree}
}

// Resolve returns the value of field on the nearest ancestor-or-self of node
// that has a non-empty value and satisfies sel.
func (r *CachedResolver) Resolve(ctx context.Context, node Node, field Field, sel *selector) Result {
	if node.IsZero() || node.IsRenderFailure() || field.IsZero() {
		return Result{}
	}
	visited := mapset.NewThreadUnsafeSet[int64]()
	rec := node.record
	for {
		if !visited.Add(rec.ID) {
			return Result{}
		}
		if value := field.valueOf(rec); value != "" && sel.matches(ctx, rec) {
			return found(value, rec.ID)
		}
		if rec.ParentID == NoParent || r.tree == nil {
			return Result{}
		}
		parent, ok := r.tree.Lookup(ctx, rec.ParentID)
		if !ok {
			return Result{}
		}
		rec = parent
	}
}
