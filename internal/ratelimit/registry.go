package ratelimit

import (
	"fmt"
	"slices"
	"sort"
)

// Registry holds one Limiter per named preset, all sharing a Store.
type Registry struct {
	limiters map[string]*Limiter
}

// NewRegistry builds a Limiter for every preset. Every preset must be valid.
// A preset that names its own algorithm overrides any WithAlgorithm in opts.
func NewRegistry(presets map[string]Config, store Store, opts ...Option) (*Registry, error) {
	limiters := make(map[string]*Limiter, len(presets))
	for name, cfg := range presets {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}

		presetOpts := opts
		if cfg.Algorithm != "" {
			presetOpts = append(slices.Clone(opts), WithAlgorithm(cfg.Algorithm))
		}
		limiters[name] = New(cfg, store, presetOpts...)
	}

	return &Registry{limiters: limiters}, nil
}

// Get returns the limiter for preset.
func (r *Registry) Get(preset string) (*Limiter, bool) {
	if r == nil {
		return nil, false
	}
	l, ok := r.limiters[preset]
	return l, ok
}

// Names returns the registered preset names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}

	names := make([]string, 0, len(r.limiters))
	for name := range r.limiters {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
