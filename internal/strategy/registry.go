package strategy

import (
	"fmt"
	"sort"
	"sync"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
)

// Registry maps strategy names (and legacy aliases) to factories. It is
// populated at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Strategy
	aliases   map[string]string
}

// NewRegistry builds a registry preloaded with the built-in strategies and
// their legacy aliases.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]func() Strategy),
		aliases:   make(map[string]string),
	}
	r.Register(DefaultStrategyName, func() Strategy { return NewDefaultStrategy() })
	r.Register(DualSupertrendName, func() Strategy { return NewDualSupertrendStrategy() })
	r.Alias("single-check", DefaultStrategyName)
	r.Alias("dual-supertrend", DualSupertrendName)
	return r
}

// Register adds a strategy factory under its canonical name.
func (r *Registry) Register(name string, factory func() Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Alias maps a legacy name onto a canonical one.
func (r *Registry) Alias(alias, canonical string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = canonical
}

// Resolve returns the canonical name for a (possibly aliased) strategy name.
func (r *Registry) Resolve(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		return canonical
	}
	return name
}

// Get constructs a strategy by name or alias. Unknown names are an explicit
// error; there is no silent fallback.
func (r *Registry) Get(name string) (Strategy, error) {
	canonical := r.Resolve(name)
	r.mu.RLock()
	factory, ok := r.factories[canonical]
	r.mu.RUnlock()
	if !ok {
		return nil, enginerr.New(enginerr.KindUnknownStrategy, "strategy", "get",
			fmt.Sprintf("unknown strategy %q", name))
	}
	return factory(), nil
}

// Names lists the canonical strategy names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
