package productinfo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInvalidFunction reports a selector function that cannot be registered.
var ErrInvalidFunction = errors.New("productinfo: invalid selector function")

// SelectorFunc is a helper callable from selector expressions, by name in expr
// and js selectors and through call(name, [args]) in every engine.
type SelectorFunc func(args ...any) (any, error)

// FunctionRegistry holds the helpers shared by every selector an engine
// compiles. Names are case sensitive identifiers and may not shadow a node
// binding.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]SelectorFunc
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]SelectorFunc)}
}

// Register adds fn under name.
func (r *FunctionRegistry) Register(name string, fn SelectorFunc) error {
	if err := validateFunctionName(name); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("%w: %q is nil", ErrInvalidFunction, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]SelectorFunc)
	}
	if _, exists := r.functions[name]; exists {
		return fmt.Errorf("%w: %q already registered", ErrInvalidFunction, name)
	}
	r.functions[name] = fn
	return nil
}

func validateFunctionName(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidFunction, name)
	}
	if reservedSelectorNames.Contains(name) {
		return fmt.Errorf("%w: %q shadows a selector binding", ErrInvalidFunction, name)
	}
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.functions[name]
	return ok
}

// Clone returns a copy that later registrations on r do not affect.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]SelectorFunc, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call runs the helper registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no functions registered", ErrInvalidFunction)
	}
	r.mu.RLock()
	fn := r.functions[name]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q not registered", ErrInvalidFunction, name)
	}
	return fn(args...)
}

// Names returns the registered names in order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes the helpers in registry to selectors. The
// registry is copied; registering on it afterwards does not reach the engine.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name. An invalid or duplicate name
// makes NewEngine fail.
func WithCustomFunction(name string, fn SelectorFunc) Option {
	return func(cfg *engineConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, err)
		}
	}
}
