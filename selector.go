package productinfo

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedSelectorNames are bound by the engine itself. Attributes and
// selector functions never take these names.
var reservedSelectorNames = mapset.NewThreadUnsafeSet(
	"id", "parentId", "nodeName", "level", "path", "attrs",
	"now", "args", "metadata", "call",
)

// selector narrows which ancestor qualifies. A nil selector matches every
// node.
type selector struct {
	expr    string
	engine  string
	rule    CompiledRule
	broken  bool
	logger  *slog.Logger
	evalLog EvaluatorLogger
}

// compileSelector compiles expr with the engine's evaluator. A selector that
// does not compile is kept as a broken selector that matches nothing.
func (e *Engine) compileSelector(expr string) *selector {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	s := &selector{
		expr:    expr,
		engine:  evaluatorEngineName(e.evaluator),
		logger:  e.cfg.logger,
		evalLog: e.cfg.evaluatorLogger,
	}
	rule, err := e.evaluator.Compile(expr)
	if err != nil {
		s.broken = true
		e.cfg.logger.Debug("selector failed to compile", slog.String("expr", expr), slog.Any("error", err))
		s.evalLog.LogEvaluation(EvaluatorLogEvent{Engine: s.engine, Expr: expr, Err: err})
		return s
	}
	s.rule = rule
	return s
}

// matches evaluates the selector against rec, failing closed on any error or
// non-boolean result.
func (s *selector) matches(ctx context.Context, rec NodeRecord) bool {
	if s == nil {
		return true
	}
	if s.broken || s.rule == nil {
		return false
	}
	rc := RuleContext{Binding: nodeBinding(rec), NodeID: rec.ID}
	start := time.Now()
	out, err := s.rule.Evaluate(rc)
	matched := false
	if err == nil {
		matched, _ = out.(bool)
	}
	s.evalLog.LogEvaluation(EvaluatorLogEvent{
		Engine:   s.engine,
		Expr:     s.expr,
		Node:     rc.nodeLabel(),
		Matched:  matched,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		s.logger.DebugContext(ctx, "selector evaluation failed",
			slog.String("expr", s.expr),
			slog.Int64("node_id", rec.ID),
			slog.Any("error", err))
	}
	return matched
}

// nodeBinding exposes a node to selector expressions. Attributes are reachable
// through attrs and, when their alias is a plain identifier that does not
// shadow structural names, as top-level variables.
func nodeBinding(rec NodeRecord) map[string]any {
	attrs := make(map[string]any, len(rec.Attributes))
	for k, v := range rec.Attributes {
		attrs[k] = v
	}
	binding := map[string]any{
		"id":       rec.ID,
		"parentId": rec.ParentID,
		"nodeName": rec.Name,
		"level":    int64(rec.Level),
		"path":     rec.PathString(),
		"attrs":    attrs,
	}
	for k, v := range rec.Attributes {
		if reservedSelectorNames.Contains(k) || !identifierPattern.MatchString(k) {
			continue
		}
		binding[k] = v
	}
	return binding
}
