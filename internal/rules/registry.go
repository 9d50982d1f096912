package rules

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownPersona is returned when no rule table exists for a persona.
var ErrUnknownPersona = errors.New("unknown persona")

// Registry holds the per-persona rule tables. It is immutable after
// construction, so concurrent readers need no locking; switching personas
// is the engine's job, not the registry's.
type Registry struct {
	tables map[string][]Rule
}

// NewRegistry builds a registry from the built-in persona tables.
func NewRegistry() *Registry {
	r, err := NewRegistryFromTables(builtinTables())
	if err != nil {
		// The shipped tables are validated by tests; reaching this is a bug.
		panic(err)
	}
	return r
}

// NewRegistryFromTables validates and adopts externally supplied tables.
func NewRegistryFromTables(tables map[string][]Rule) (*Registry, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no persona tables supplied")
	}
	for persona, list := range tables {
		if persona == "" {
			return nil, fmt.Errorf("persona id must not be empty")
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("persona %q has an empty rule table", persona)
		}
		for i, rule := range list {
			if err := rule.Validate(); err != nil {
				return nil, fmt.Errorf("persona %q rule %d: %w", persona, i, err)
			}
		}
	}

	copied := make(map[string][]Rule, len(tables))
	for persona, list := range tables {
		copied[persona] = append([]Rule(nil), list...)
	}
	return &Registry{tables: copied}, nil
}

// RulesFor returns the persona's ordered rule list. The returned slice is
// a copy; callers cannot mutate the registry through it.
func (r *Registry) RulesFor(persona string) ([]Rule, error) {
	list, ok := r.tables[persona]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, persona)
	}
	return append([]Rule(nil), list...), nil
}

// Has reports whether a persona is known.
func (r *Registry) Has(persona string) bool {
	_, ok := r.tables[persona]
	return ok
}

// Personas lists the known persona ids in stable order.
func (r *Registry) Personas() []string {
	out := make([]string, 0, len(r.tables))
	for persona := range r.tables {
		out = append(out, persona)
	}
	sort.Strings(out)
	return out
}
