// ABOUTME: Filter store implementation
// ABOUTME: Field value arena plus per-type active-filter index

package filter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nainya/facetsearch/pkg/registry"
)

// Store owns the current filter values and the active-filter index. The
// index is the source of truth for query building; the per-field values are
// denormalized for widget lookup and never diverge from it: a reference is
// indexed for its owning type exactly when its value is non-empty.
type Store struct {
	mu sync.RWMutex

	reg    *registry.Registry
	values map[string]Value
	refs   map[string]registry.FieldRef
	active map[registry.EntityType][]registry.FieldRef
}

// NewStore creates an empty filter store over a registry.
func NewStore(reg *registry.Registry) *Store {
	return &Store{
		reg:    reg,
		values: make(map[string]Value),
		refs:   make(map[string]registry.FieldRef),
		active: make(map[registry.EntityType][]registry.FieldRef),
	}
}

// Registry returns the registry the store resolves fields against.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// UpdateTypeAttribute sets or clears the filter on a built-in attribute.
// A nil value clears the field and drops it from the index; clearing an
// already clear field is a no-op.
func (s *Store) UpdateTypeAttribute(t registry.EntityType, attrID string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateTypeAttribute(t, attrID, v)
}

// UpdateSchemaParameter sets or clears the filter on a schema parameter,
// indexing it under the schema's owning type.
func (s *Store) UpdateSchemaParameter(schemaID, paramID string, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSchemaParameter(schemaID, paramID, v)
}

// UpdateActiveSchemas changes which schemas are active for a type. Filters
// on parameters of schemas leaving the active set are cleared first, so no
// filter can survive on a hidden schema; then the reserved schema attribute
// itself is updated. A nil value means "all schemas active".
func (s *Store) UpdateActiveSchemas(t registry.EntityType, v Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateActiveSchemas(t, v)
}

// Reset clears every active filter across all types, routing schema-kind
// attributes through the cascading path.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset()
}

// ApplyQuery rehydrates filter state from a serialized query: the store is
// reset, clauses are merged per field (so a >=/<= pair on one date field
// lands as one value), then each field is applied through its update
// primitive. Clause errors are collected and reported, not fatal to the
// remaining clauses.
func (s *Store) ApplyQuery(q *Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(); err != nil {
		return err
	}
	if q == nil {
		return nil
	}

	merged := make(map[string]Value)
	var order []string
	byKey := make(map[string]Clause)

	for _, c := range q.Content {
		key := c.Ref().Key()
		if _, seen := merged[key]; !seen {
			order = append(order, key)
			byKey[key] = c
		}
		merged[key] = merged[key].Merge(Term{Op: c.Op, Content: c.Content})
	}

	var errs []error
	for _, key := range order {
		c := byKey[key]
		v := merged[key]

		var err error
		switch c.Kind {
		case registry.KindTypeAttribute:
			if len(c.Target) < 2 {
				err = fmt.Errorf("%w: %v", registry.ErrBadFieldRef, c.Target)
				break
			}
			err = s.updateTypeAttribute(registry.EntityType(c.Target[0]), c.Target[1], v)
		case registry.KindSchemaParameter:
			if len(c.Target) != 2 {
				err = fmt.Errorf("%w: %v", registry.ErrBadFieldRef, c.Target)
				break
			}
			err = s.updateSchemaParameter(c.Target[0], c.Target[1], v)
		default:
			err = fmt.Errorf("%w: %v", registry.ErrUnknownKind, c.Kind)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Value returns the current value of a field, or nil when unfiltered.
func (s *Store) Value(ref registry.FieldRef) Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[ref.Key()]
}

// TypeAttributeValue resolves an attribute's full reference (including any
// nested target) and returns its current value.
func (s *Store) TypeAttributeValue(t registry.EntityType, attrID string) (Value, error) {
	attr, err := s.reg.TypeAttribute(t, attrID)
	if err != nil {
		return nil, err
	}
	ref := typeAttributeRef(t, attr)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[ref.Key()], nil
}

// SchemaParameterValue returns the current value of a schema parameter.
func (s *Store) SchemaParameterValue(schemaID, paramID string) (Value, error) {
	if _, _, err := s.reg.SchemaParameter(schemaID, paramID); err != nil {
		return nil, err
	}
	ref := schemaParameterRef(schemaID, paramID)

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[ref.Key()], nil
}

// ActiveFilters returns a copy of the active-filter index for a type.
func (s *Store) ActiveFilters(t registry.EntityType) []registry.FieldRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := s.active[t]
	out := make([]registry.FieldRef, len(refs))
	copy(out, refs)
	return out
}

// ActiveFilterCounts reports how many filters are active per type.
func (s *Store) ActiveFilterCounts() map[registry.EntityType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[registry.EntityType]int, len(registry.TypeOrder))
	for _, t := range registry.TypeOrder {
		out[t] = len(s.active[t])
	}
	return out
}

// ActiveSchemas returns the schema ids currently active for a type: the
// reserved schema attribute's value when set, otherwise every schema the
// registry holds for the type.
func (s *Store) ActiveSchemas(t registry.EntityType) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSchemas(t)
}

// ---- internals (callers hold s.mu) ----

func typeAttributeRef(t registry.EntityType, attr *registry.Attribute) registry.FieldRef {
	target := make([]string, 0, 2+len(attr.NestedTarget))
	target = append(target, string(t), attr.ID)
	target = append(target, attr.NestedTarget...)
	return registry.FieldRef{Kind: registry.KindTypeAttribute, Target: target}
}

func schemaParameterRef(schemaID, paramID string) registry.FieldRef {
	return registry.FieldRef{Kind: registry.KindSchemaParameter, Target: []string{schemaID, paramID}}
}

func (s *Store) updateTypeAttribute(t registry.EntityType, attrID string, v Value) error {
	attr, err := s.reg.TypeAttribute(t, attrID)
	if err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	s.setValue(t, typeAttributeRef(t, attr), v)
	return nil
}

func (s *Store) updateSchemaParameter(schemaID, paramID string, v Value) error {
	sch, _, err := s.reg.SchemaParameter(schemaID, paramID)
	if err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	s.setValue(sch.Type, schemaParameterRef(schemaID, paramID), v)
	return nil
}

func (s *Store) updateActiveSchemas(t registry.EntityType, v Value) error {
	if _, err := s.reg.TypeAttribute(t, registry.AttrSchema); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}

	current := s.activeSchemas(t)
	next := s.schemaIDsFromValue(t, v)

	removed := make(map[string]bool)
	for _, id := range current {
		removed[id] = true
	}
	for _, id := range next {
		delete(removed, id)
	}

	// Cascading delete: clear parameter filters on schemas leaving the
	// active set before touching the schema attribute itself.
	if len(removed) > 0 {
		refs := make([]registry.FieldRef, len(s.active[t]))
		copy(refs, s.active[t])
		for _, ref := range refs {
			if ref.Kind != registry.KindSchemaParameter {
				continue
			}
			if removed[ref.Target[0]] {
				if err := s.updateSchemaParameter(ref.Target[0], ref.Target[1], nil); err != nil {
					return err
				}
			}
		}
	}

	return s.updateTypeAttribute(t, registry.AttrSchema, v)
}

func (s *Store) reset() error {
	for _, t := range registry.TypeOrder {
		refs := make([]registry.FieldRef, len(s.active[t]))
		copy(refs, s.active[t])

		for _, ref := range refs {
			var err error
			switch ref.Kind {
			case registry.KindTypeAttribute:
				if len(ref.Target) >= 2 && ref.Target[1] == registry.AttrSchema {
					err = s.updateActiveSchemas(t, nil)
				} else if len(ref.Target) >= 2 {
					err = s.updateTypeAttribute(t, ref.Target[1], nil)
				} else {
					err = fmt.Errorf("%w: %v", registry.ErrBadFieldRef, ref.Target)
				}
			case registry.KindSchemaParameter:
				err = s.updateSchemaParameter(ref.Target[0], ref.Target[1], nil)
			default:
				err = fmt.Errorf("%w: %v", registry.ErrUnknownKind, ref.Kind)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) activeSchemas(t registry.EntityType) []string {
	attr, err := s.reg.TypeAttribute(t, registry.AttrSchema)
	if err != nil {
		return nil
	}
	v := s.values[typeAttributeRef(t, attr).Key()]
	return s.schemaIDsFromValue(t, v)
}

// schemaIDsFromValue interprets a schema attribute value: empty means every
// schema of the type is active.
func (s *Store) schemaIDsFromValue(t registry.EntityType, v Value) []string {
	if v.IsZero() {
		return s.reg.TypeSchemas(t)
	}
	var ids []string
	for _, term := range v {
		ids = append(ids, stringContents(term.Content)...)
	}
	return ids
}

// setValue is the single mutation point keeping value arena and index in
// lockstep.
func (s *Store) setValue(owner registry.EntityType, ref registry.FieldRef, v Value) {
	key := ref.Key()

	if v.IsZero() {
		delete(s.values, key)
		delete(s.refs, key)

		refs := s.active[owner]
		for i := range refs {
			if refs[i].Equal(ref) {
				s.active[owner] = append(refs[:i], refs[i+1:]...)
				break
			}
		}
		return
	}

	s.values[key] = v
	s.refs[key] = ref

	for _, existing := range s.active[owner] {
		if existing.Equal(ref) {
			return
		}
	}
	s.active[owner] = append(s.active[owner], ref)
}
