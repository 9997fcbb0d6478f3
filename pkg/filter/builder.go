// ABOUTME: Query builder
// ABOUTME: Deterministic translation of active filters into the query DSL

package filter

import (
	"fmt"

	"github.com/nainya/facetsearch/pkg/registry"
)

// BuildQuery converts the active filters into the server's nested query
// representation. With a matches type the clauses are restricted to that
// type's ancestor chain, so a filter on project narrows experiment results
// but a dataset filter never leaks into an experiment-scoped query. Returns
// nil when no clause results.
//
// Output is deterministic for identical state: types in hierarchy order,
// then the active-filter index order, never re-sorted.
func (s *Store) BuildQuery(matches *registry.EntityType) (*Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typesToInclude := registry.TypeOrder
	if matches != nil {
		typesToInclude = registry.AncestorChain(*matches)
		if typesToInclude == nil {
			return nil, fmt.Errorf("%w: %q", registry.ErrUnknownType, *matches)
		}
	}

	var clauses []Clause
	for _, t := range typesToInclude {
		for _, ref := range s.active[t] {
			def, err := s.reg.Resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("active filter does not resolve: %w", err)
			}
			for _, term := range s.values[ref.Key()] {
				clauses = append(clauses, Clause{
					Kind:    ref.Kind,
					Target:  ref.Target,
					Type:    def.DataType,
					Op:      term.Op,
					Content: term.Content,
				})
			}
		}
	}

	if len(clauses) == 0 {
		return nil, nil
	}
	return &Query{Op: "and", Content: clauses}, nil
}
