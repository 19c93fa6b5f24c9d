package productinfo

import (
	"errors"
	"fmt"
	"log/slog"
)

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	config          Config
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          *slog.Logger
	evaluatorLogger EvaluatorLogger
	errs            []error
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.config = cfg.config.withDefaults()
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.evaluatorLogger == nil {
		cfg.evaluatorLogger = noopEvaluatorLogger{}
	}
	return cfg
}

// WithConfig replaces the engine configuration. Zero-valued aliases and
// selector engine fall back to DefaultConfig; the walk limits are taken as
// given, so a zero MaxAncestorDepth or MaxMasterRedirects is unbounded. Start
// from DefaultConfig to keep the stock limits.
func WithConfig(config Config) Option {
	return func(cfg *engineConfig) {
		cfg.config = config
	}
}

// WithEvaluator configures the selector evaluator, overriding
// Config.SelectorEngine.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *engineConfig) {
		cfg.evaluator = e
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// WithMaxAncestorDepth overrides Config.MaxAncestorDepth.
func WithMaxAncestorDepth(depth int) Option {
	return func(cfg *engineConfig) {
		cfg.config.MaxAncestorDepth = depth
	}
}

// WithParallelSnapshot overrides Config.ParallelSnapshot.
func WithParallelSnapshot(parallel bool) Option {
	return func(cfg *engineConfig) {
		cfg.config.ParallelSnapshot = parallel
	}
}

func (cfg engineConfig) err() error {
	return errors.Join(cfg.errs...)
}

func (cfg engineConfig) resolveEvaluator() (Evaluator, error) {
	if cfg.evaluator != nil {
		return cfg.evaluator, nil
	}
	var evaluator Evaluator
	switch cfg.config.SelectorEngine {
	case EngineCEL:
		evaluator = NewCELEvaluator(CELWithProgramCache(cfg.programCache), CELWithFunctionRegistry(cfg.functions))
	case EngineJS:
		evaluator = NewJSEvaluator(JSWithProgramCache(cfg.programCache), JSWithFunctionRegistry(cfg.functions))
	default:
		evaluator = NewExprEvaluator(ExprWithProgramCache(cfg.programCache), ExprWithFunctionRegistry(cfg.functions))
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s", ErrEvaluatorUnavailable, cfg.config.SelectorEngine)
	}
	return evaluator, nil
}
