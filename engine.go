package productinfo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Engine resolves one property for one node through the fallback layers:
// variant override, ancestor-or-self lookup, then master relation redirects.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	tree      TreeStore
	repo      ContentRepository
	cfg       engineConfig
	evaluator Evaluator
	cached    *CachedResolver
	uncached  *UncachedResolver
}

// NewEngine wires an engine over the published tree and the live content
// repository.
func NewEngine(tree TreeStore, repo ContentRepository, opts ...Option) (*Engine, error) {
	if tree == nil {
		return nil, fmt.Errorf("productinfo: tree store is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("productinfo: content repository is required")
	}
	cfg := applyOptions(opts)
	if err := cfg.err(); err != nil {
		return nil, err
	}
	if err := cfg.config.Validate(); err != nil {
		return nil, err
	}
	if cfg.programCache == nil {
		cfg.programCache = NewProgramCache(1024, 30*time.Minute)
	}
	evaluator, err := cfg.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	cached := NewCachedResolver(tree)
	return &Engine{
		tree:      tree,
		repo:      repo,
		cfg:       cfg,
		evaluator: evaluator,
		cached:    cached,
		uncached:  NewUncachedResolver(tree, repo, cached, cfg.config.MaxAncestorDepth, cfg.logger),
	}, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg.config
}

// Node returns the handle for id: the published node, or a render-failure
// placeholder when the snapshot has none.
func (e *Engine) Node(ctx context.Context, id int64) Node {
	return LookupNode(ctx, e.tree, id)
}

// LookupNode resolves a node from its id in string form, as stored in picker
// attributes. ok is false when value is not an id.
func (e *Engine) LookupNode(ctx context.Context, value string) (Node, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return Node{}, false
	}
	return e.Node(ctx, id), true
}

// Resolve returns the value of q.Alias for q.Node.
func (e *Engine) Resolve(ctx context.Context, q Query) Result {
	return e.resolve(ctx, q, tracer{})
}

// ResolveWithTrace resolves q and records every layer consulted.
func (e *Engine) ResolveWithTrace(ctx context.Context, q Query) (Result, Trace) {
	trace := Trace{Alias: q.Alias, Mode: q.Mode}
	res := e.resolve(ctx, q, tracer{trace: &trace})
	return res, trace
}

// Value is a convenience wrapper returning the resolved value or "".
func (e *Engine) Value(ctx context.Context, q Query) string {
	return e.Resolve(ctx, q).String()
}

func (e *Engine) resolve(ctx context.Context, q Query, tr tracer) Result {
	field := ParseField(q.Alias)
	if field.IsZero() || q.Node.IsZero() {
		return Result{}
	}
	node := q.Node.Clone()

	if q.VariantKey != "" && !field.Structural() {
		if res := e.resolveVariant(ctx, node, q.VariantKey, field, tr); res.Found() {
			return res
		}
	}

	sel := e.compileSelector(q.Selector)
	master := ContentField(e.cfg.config.Aliases.MasterRelation)
	visited := mapset.NewThreadUnsafeSet[int64]()
	var last Result

	for redirects := 0; ; redirects++ {
		id, _ := node.ID()
		if !visited.Add(id) {
			e.cfg.logger.WarnContext(ctx, "master relation cycle",
				slog.Int64("node_id", id),
				slog.String("alias", field.Alias))
			tr.record(LayerCycle, field.Alias, id, Result{})
			return worse(last, Result{})
		}

		res := e.lookup(ctx, node, field, sel, q.Mode)
		tr.record(LayerAncestor, field.Alias, stepNodeID(res, id), res)
		if res.Found() {
			return res
		}
		last = worse(last, res)

		if limit := e.cfg.config.MaxMasterRedirects; limit > 0 && redirects >= limit {
			e.cfg.logger.WarnContext(ctx, "master relation redirect limit reached",
				slog.Int64("node_id", id),
				slog.Int("max_redirects", limit))
			return last
		}

		pointer := e.lookup(ctx, node, master, nil, q.Mode)
		tr.record(LayerMaster, master.Alias, stepNodeID(pointer, id), pointer)
		if !pointer.Found() {
			return worse(last, pointer)
		}
		next, ok := e.LookupNode(ctx, pointer.Value)
		if !ok {
			e.cfg.logger.DebugContext(ctx, "master relation is not a node id",
				slog.Int64("node_id", id),
				slog.String("value", pointer.Value))
			return last
		}
		node = next
	}
}

// lookup performs one ancestor-or-self lookup in the requested mode.
func (e *Engine) lookup(ctx context.Context, node Node, field Field, sel *selector, mode Mode) Result {
	if mode == ModeCached && !node.IsRenderFailure() {
		return e.cached.Resolve(ctx, node, field, sel)
	}
	return e.uncached.Resolve(ctx, node, field, sel, mode)
}

func (e *Engine) resolveVariant(ctx context.Context, node Node, variantKey string, field Field, tr tracer) Result {
	id, ok := node.ID()
	if !ok {
		return Result{}
	}
	values, ok, err := e.repo.FetchVariant(ctx, id, variantKey)
	if err != nil {
		e.cfg.logger.WarnContext(ctx, "variant lookup failed",
			slog.Int64("node_id", id),
			slog.String("variant", variantKey),
			slog.Any("error", err))
		res := transient(id)
		tr.record(LayerVariant, field.Alias, id, res)
		return res
	}
	var res Result
	if ok {
		res = found(values[field.Alias], id)
	}
	tr.record(LayerVariant, field.Alias, id, res)
	return res
}

func stepNodeID(res Result, fallback int64) int64 {
	if res.NodeID != 0 {
		return res.NodeID
	}
	return fallback
}
