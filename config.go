package productinfo

import (
	"fmt"
	"strings"
)

// Config holds the tunables of the resolution engine and snapshot builder.
type Config struct {
	// MaxAncestorDepth bounds how many nodes an uncached walk fetches from the
	// content repository. Zero means unbounded.
	MaxAncestorDepth int `mapstructure:"max_ancestor_depth"`
	// MaxMasterRedirects bounds how many master relations one lookup follows.
	// Zero means unbounded; cycles terminate either way.
	MaxMasterRedirects int    `mapstructure:"max_master_redirects"`
	SelectorEngine     string `mapstructure:"selector_engine"`
	// ParallelSnapshot resolves snapshot attributes concurrently.
	ParallelSnapshot bool    `mapstructure:"parallel_snapshot"`
	Aliases          Aliases `mapstructure:"aliases"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		MaxAncestorDepth:   64,
		MaxMasterRedirects: 16,
		SelectorEngine:     EngineExpr,
		Aliases:            DefaultAliases(),
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.MaxAncestorDepth < 0 {
		return fmt.Errorf("%w: max_ancestor_depth must not be negative", ErrInvalidConfig)
	}
	if c.MaxMasterRedirects < 0 {
		return fmt.Errorf("%w: max_master_redirects must not be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.SelectorEngine) {
	case "", EngineExpr, EngineCEL, EngineJS:
	default:
		return fmt.Errorf("%w: unknown selector engine %q", ErrInvalidConfig, c.SelectorEngine)
	}
	aliases := map[string]string{
		"store":           c.Aliases.Store,
		"sku":             c.Aliases.SKU,
		"name":            c.Aliases.Name,
		"vat_group":       c.Aliases.VatGroup,
		"master_relation": c.Aliases.MasterRelation,
	}
	for key, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("%w: alias %s must not be empty", ErrInvalidConfig, key)
		}
	}
	return nil
}

// withDefaults fills zero-valued aliases and engine from DefaultConfig.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.SelectorEngine == "" {
		c.SelectorEngine = defaults.SelectorEngine
	}
	c.SelectorEngine = strings.ToLower(c.SelectorEngine)
	if c.Aliases.Store == "" {
		c.Aliases.Store = defaults.Aliases.Store
	}
	if c.Aliases.SKU == "" {
		c.Aliases.SKU = defaults.Aliases.SKU
	}
	if c.Aliases.Name == "" {
		c.Aliases.Name = defaults.Aliases.Name
	}
	if c.Aliases.VatGroup == "" {
		c.Aliases.VatGroup = defaults.Aliases.VatGroup
	}
	if c.Aliases.MasterRelation == "" {
		c.Aliases.MasterRelation = defaults.Aliases.MasterRelation
	}
	return c
}
