// ABOUTME: Field registry implementation
// ABOUTME: Attribute/schema lookup and one-time schema loading

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SchemaFetcher retrieves the schema/parameter registry from the server,
// keyed by owning entity type then schema id.
type SchemaFetcher interface {
	FetchSchemas(ctx context.Context) (map[EntityType]map[string]*Schema, error)
}

// Registry is the static lookup of attribute and schema metadata. Attributes
// come from configuration at construction; schemas arrive through a single
// LoadSchemas call and are replaced wholesale on each successful load.
type Registry struct {
	mu sync.RWMutex

	attrs     map[EntityType]map[string]*Attribute
	attrOrder map[EntityType][]string

	schemas     map[string]*Schema
	schemaIDs   []string
	typeSchemas map[EntityType][]string

	loading bool
	loadErr string
}

// New builds a registry from an attribute configuration.
func New(cfg *Config) (*Registry, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		attrs:       make(map[EntityType]map[string]*Attribute),
		attrOrder:   make(map[EntityType][]string),
		schemas:     make(map[string]*Schema),
		typeSchemas: make(map[EntityType][]string),
	}

	for _, t := range TypeOrder {
		byID := make(map[string]*Attribute)
		var order []string
		for _, a := range cfg.withReservedAttributes(t) {
			attr := a
			byID[attr.ID] = &attr
			order = append(order, attr.ID)
		}
		r.attrs[t] = byID
		r.attrOrder[t] = order
	}

	return r, nil
}

// TypeAttribute resolves one built-in attribute of a type.
func (r *Registry) TypeAttribute(t EntityType, attrID string) (*Attribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID, ok := r.attrs[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	attr, ok := byID[attrID]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, t, attrID)
	}
	return attr, nil
}

// Attributes lists a type's attributes in configuration order.
func (r *Registry) Attributes(t EntityType) []*Attribute {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order := r.attrOrder[t]
	out := make([]*Attribute, 0, len(order))
	for _, id := range order {
		out = append(out, r.attrs[t][id])
	}
	return out
}

// Schema resolves a loaded schema by id.
func (r *Registry) Schema(schemaID string) (*Schema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sch, ok := r.schemas[schemaID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schemaID)
	}
	return sch, nil
}

// SchemaParameter resolves a parameter within its owning schema.
func (r *Registry) SchemaParameter(schemaID, paramID string) (*Schema, *Parameter, error) {
	sch, err := r.Schema(schemaID)
	if err != nil {
		return nil, nil, err
	}
	param, ok := sch.Parameters[paramID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrUnknownParameter, schemaID, paramID)
	}
	return sch, param, nil
}

// SchemaIDs lists every loaded schema id in load order.
func (r *Registry) SchemaIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.schemaIDs))
	copy(out, r.schemaIDs)
	return out
}

// TypeSchemas lists the ids of every schema owned by a type.
func (r *Registry) TypeSchemas(t EntityType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.typeSchemas[t]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Resolve maps a field reference to its definition. Malformed references
// and unknown ids fail loudly; callers never receive a partial definition.
func (r *Registry) Resolve(ref FieldRef) (*FieldDef, error) {
	switch ref.Kind {
	case KindTypeAttribute:
		if len(ref.Target) < 2 {
			return nil, fmt.Errorf("%w: type attribute target %v", ErrBadFieldRef, ref.Target)
		}
		t, err := ParseEntityType(ref.Target[0])
		if err != nil {
			return nil, err
		}
		attr, err := r.TypeAttribute(t, ref.Target[1])
		if err != nil {
			return nil, err
		}
		return &FieldDef{Type: t, DataType: attr.DataType, FullName: attr.FullName}, nil

	case KindSchemaParameter:
		if len(ref.Target) != 2 {
			return nil, fmt.Errorf("%w: schema parameter target %v", ErrBadFieldRef, ref.Target)
		}
		sch, param, err := r.SchemaParameter(ref.Target[0], ref.Target[1])
		if err != nil {
			return nil, err
		}
		return &FieldDef{Type: sch.Type, DataType: param.DataType, FullName: param.FullName}, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(ref.Kind))
}

// IsLoading reports whether a schema load is in flight.
func (r *Registry) IsLoading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// LoadError returns the message from the last failed load, or "".
func (r *Registry) LoadError() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadErr
}

// LoadSchemas fetches the schema registry and replaces the loaded set
// wholesale. Concurrent calls are tolerated: each completed fetch wins over
// the previous state, and a failure records an error string without
// disturbing schemas from an earlier successful load.
func (r *Registry) LoadSchemas(ctx context.Context, f SchemaFetcher) error {
	r.mu.Lock()
	r.loading = true
	r.mu.Unlock()

	byType, err := f.FetchSchemas(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false

	if err != nil {
		r.loadErr = err.Error()
		return fmt.Errorf("failed to load schemas: %w", err)
	}

	schemas := make(map[string]*Schema)
	typeSchemas := make(map[EntityType][]string)
	var ids []string

	for _, t := range TypeOrder {
		perType := byType[t]

		// Deterministic order for equal inputs.
		typeIDs := make([]string, 0, len(perType))
		for id := range perType {
			typeIDs = append(typeIDs, id)
		}
		sort.Strings(typeIDs)

		for _, id := range typeIDs {
			sch := perType[id]
			if sch == nil {
				continue
			}
			sch.ID = id
			sch.Type = t
			schemas[id] = sch
			ids = append(ids, id)
			typeSchemas[t] = append(typeSchemas[t], id)
		}
	}

	r.schemas = schemas
	r.schemaIDs = ids
	r.typeSchemas = typeSchemas
	r.loadErr = ""
	return nil
}
