// ABOUTME: Server query DSL
// ABOUTME: Nested and-group of typed filter clauses

package filter

import "github.com/nainya/facetsearch/pkg/registry"

// Clause is one filter condition in the server's query representation.
// Type is the field's data kind; it is filled by the builder and ignored on
// rehydration, where the registry is authoritative.
type Clause struct {
	Kind    registry.FieldKind `json:"kind"`
	Target  []string           `json:"target"`
	Type    registry.DataType  `json:"type,omitempty"`
	Op      Op                 `json:"op"`
	Content any                `json:"content"`
}

// Ref returns the field reference addressed by the clause.
func (c Clause) Ref() registry.FieldRef {
	return registry.FieldRef{Kind: c.Kind, Target: c.Target}
}

// Query is the outgoing filter node: an "and" over clauses. A nil *Query
// means "no filter" and must be omitted from the request, never sent as an
// empty group.
type Query struct {
	Op      string   `json:"op"`
	Content []Clause `json:"content"`
}
