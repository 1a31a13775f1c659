// Package rules loads and serves regime rule sets. Rule sets are immutable
// once registered; the registry lock exists only for the reload endpoint.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/opensource-finance/myna/internal/domain"
)

// Registry holds the validated rule sets keyed by (regime, assessment year).
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*domain.RegimeRuleSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*domain.RegimeRuleSet)}
}

// Register validates and stores a rule set, replacing any previous set for
// the same (regime, year).
func (r *Registry) Register(rs *domain.RegimeRuleSet) error {
	if err := rs.Validate(); err != nil {
		return fmt.Errorf("invalid rule set: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[rs.Key()] = rs
	return nil
}

// Get returns the rule set for a (regime, year) pair.
// Returns ErrRuleSetNotFound (wrapped) when the pair is not configured;
// rules from another year are never substituted.
func (r *Registry) Get(regime domain.RegimeKind, year string) (*domain.RegimeRuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rs, ok := r.sets[string(regime)+"/"+year]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrRuleSetNotFound, regime, year)
	}
	return rs, nil
}

// Pair returns both regimes' rule sets for one assessment year. A comparison
// needs the complete pair; a missing half fails the whole lookup.
func (r *Registry) Pair(year string) (old, new *domain.RegimeRuleSet, err error) {
	old, err = r.Get(domain.RegimeOld, year)
	if err != nil {
		return nil, nil, err
	}
	new, err = r.Get(domain.RegimeNew, year)
	if err != nil {
		return nil, nil, err
	}
	return old, new, nil
}

// Keys returns the registered (regime, year) keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sets))
	for k := range r.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the number of registered rule sets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}

// Replace swaps the full contents of the registry in one step. Used by the
// reload endpoint so readers never observe a half-loaded state.
func (r *Registry) Replace(sets []*domain.RegimeRuleSet) error {
	next := make(map[string]*domain.RegimeRuleSet, len(sets))
	for _, rs := range sets {
		if err := rs.Validate(); err != nil {
			return fmt.Errorf("invalid rule set: %w", err)
		}
		next[rs.Key()] = rs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets = next
	return nil
}
