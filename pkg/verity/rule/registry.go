package rule

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the rule set for a run. Rules are immutable once
// registered; the registry is safe for concurrent reads after loading.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule. Duplicate ids are rejected rather than replaced:
// a catalog with two rules of the same id is a configuration bug.
func (r *Registry) Register(rules ...Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rl := range rules {
		if rl.ID() == "" {
			return fmt.Errorf("rule with empty id")
		}
		if _, exists := r.rules[rl.ID()]; exists {
			return fmt.Errorf("duplicate rule id %q", rl.ID())
		}
		r.rules[rl.ID()] = rl
	}
	return nil
}

// MustRegister is Register for statically-known catalogs; it panics on a
// duplicate id.
func (r *Registry) MustRegister(rules ...Rule) {
	if err := r.Register(rules...); err != nil {
		panic(err)
	}
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Get returns the rule with the given id, or nil.
func (r *Registry) Get(id string) Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules[id]
}

// IDs returns all rule ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.rules))
	for id := range r.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Batches partitions the rule set by group ordinal. Batches are returned
// in ascending group order; rules within a batch are ordered by id so that
// batch planning is deterministic.
func (r *Registry) Batches() [][]Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byGroup := make(map[int][]Rule)
	for _, rl := range r.rules {
		byGroup[rl.Group()] = append(byGroup[rl.Group()], rl)
	}

	groups := make([]int, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Ints(groups)

	batches := make([][]Rule, 0, len(groups))
	for _, g := range groups {
		batch := byGroup[g]
		sort.Slice(batch, func(i, j int) bool { return batch[i].ID() < batch[j].ID() })
		batches = append(batches, batch)
	}
	return batches
}
