package productinfo

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreNotConfigured reports a node with no store id anywhere in its
	// ancestor or master relation chain.
	ErrStoreNotConfigured = errors.New("productinfo: node has no store id - add a store picker to the content tree")
	// ErrContentUnavailable reports a mandatory attribute that could not be read
	// because the content repository failed.
	ErrContentUnavailable = errors.New("productinfo: content repository unavailable")
	// ErrNodeNotFound reports an empty node handle passed to the extractor.
	ErrNodeNotFound = errors.New("productinfo: node not found")
	// ErrEvaluatorUnavailable reports a selector engine that was not compiled in.
	ErrEvaluatorUnavailable = errors.New("productinfo: selector engine unavailable")
	// ErrInvalidConfig reports an unusable Config.
	ErrInvalidConfig = errors.New("productinfo: invalid config")
)

// ConfigurationError is fatal to the current operation: a mandatory piece of
// context could not be resolved for a node.
type ConfigurationError struct {
	NodeID int64
	Alias  string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.NodeID == 0 {
		return fmt.Sprintf("productinfo: configuration error alias=%q: %v", e.Alias, e.Err)
	}
	return fmt.Sprintf("productinfo: configuration error node=%d alias=%q: %v", e.NodeID, e.Alias, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func errUnknownMode(value string) error {
	return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, value)
}
