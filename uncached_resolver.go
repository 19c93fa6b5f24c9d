package productinfo

import (
	"context"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
)

// UncachedResolver walks the parent chain one node at a time against the live
// content repository. It serves uncached lookups and nodes the published
// snapshot could not render. In cached mode the walk hands over to the cached
// resolver as soon as it reaches a published ancestor.
type UncachedResolver struct {
	tree     TreeStore
	repo     ContentRepository
	cached   *CachedResolver
	maxDepth int
	logger   *slog.Logger
}

// NewUncachedResolver builds a resolver. maxDepth bounds the number of
// repository fetches per lookup; zero means unbounded.
func NewUncachedResolver(tree TreeStore, repo ContentRepository, cached *CachedResolver, maxDepth int, logger *slog.Logger) *UncachedResolver {
	if cached == nil {
		cached = NewCachedResolver(tree)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UncachedResolver{
		tree:     tree,
		repo:     repo,
		cached:   cached,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Resolve returns the value of field on the nearest ancestor-or-self of node.
// A failed repository read counts as not found at that node: the walk carries
// on from the parent recorded in the published tree when there is one, and an
// overall miss then reports StatusTransientError instead of an error.
func (r *UncachedResolver) Resolve(ctx context.Context, node Node, field Field, sel *selector, mode Mode) Result {
	if field.IsZero() || r.repo == nil {
		return Result{}
	}
	visited := mapset.NewThreadUnsafeSet[int64]()
	fetched := 0
	var last Result
	for {
		if node.IsZero() {
			return last
		}
		if mode == ModeCached && !node.IsRenderFailure() {
			return worse(last, r.cached.Resolve(ctx, node, field, sel))
		}
		id, ok := node.ID()
		if !ok {
			r.logger.DebugContext(ctx, "no node id in render failure payload", slog.String("payload", node.FailurePayload()))
			return last
		}
		if !visited.Add(id) {
			r.logger.WarnContext(ctx, "parent cycle in content repository", slog.Int64("node_id", id))
			return last
		}
		if r.maxDepth > 0 && fetched >= r.maxDepth {
			r.logger.WarnContext(ctx, "uncached ancestor walk hit depth limit",
				slog.Int64("node_id", id),
				slog.Int("max_depth", r.maxDepth),
				slog.String("alias", field.Alias))
			return last
		}
		if err := ctx.Err(); err != nil {
			r.logger.WarnContext(ctx, "uncached ancestor walk interrupted", slog.Int64("node_id", id), slog.Any("error", err))
			return transient(id)
		}

		rec, err := r.repo.FetchNode(ctx, id)
		fetched++
		if err != nil {
			r.logger.WarnContext(ctx, "content repository fetch failed",
				slog.Int64("node_id", id),
				slog.String("alias", field.Alias),
				slog.Any("error", err))
			last = worse(last, transient(id))
			parentID, ok := r.publishedParent(ctx, id)
			if !ok {
				return last
			}
			node = LookupNode(ctx, r.tree, parentID)
			continue
		}
		if value := field.valueOf(rec); value != "" && sel.matches(ctx, rec) {
			return found(value, rec.ID)
		}
		if rec.ParentID == NoParent {
			return last
		}
		node = LookupNode(ctx, r.tree, rec.ParentID)
	}
}

// publishedParent reads the parent of id from the published tree, for walks
// past a node the repository failed to serve.
func (r *UncachedResolver) publishedParent(ctx context.Context, id int64) (int64, bool) {
	if r.tree == nil {
		return 0, false
	}
	rec, ok := r.tree.Lookup(ctx, id)
	if !ok || rec.ParentID == NoParent {
		return 0, false
	}
	return rec.ParentID, true
}
