// ABOUTME: Field registry data model
// ABOUTME: Entity types, attributes, schemas and field references

package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType identifies one of the four searchable object kinds.
type EntityType string

const (
	TypeProject    EntityType = "project"
	TypeExperiment EntityType = "experiment"
	TypeDataset    EntityType = "dataset"
	TypeDatafile   EntityType = "datafile"
)

// TypeOrder is the fixed containment hierarchy: a filter on an earlier type
// also narrows the result sets of every later type.
var TypeOrder = []EntityType{TypeProject, TypeExperiment, TypeDataset, TypeDatafile}

// ParseEntityType validates a raw type identifier.
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range TypeOrder {
		if EntityType(s) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// AncestorChain returns every type up to and including t in hierarchy order.
func AncestorChain(t EntityType) []EntityType {
	for i, cand := range TypeOrder {
		if cand == t {
			chain := make([]EntityType, i+1)
			copy(chain, TypeOrder[:i+1])
			return chain
		}
	}
	return nil
}

// Plural returns the key used for this type in search responses.
func (t EntityType) Plural() string {
	return string(t) + "s"
}

// DataType classifies an attribute or parameter value.
type DataType string

const (
	DataString      DataType = "STRING"
	DataNumeric     DataType = "NUMERIC"
	DataDatetime    DataType = "DATETIME"
	DataCategorical DataType = "CATEGORICAL"
)

// Valid reports whether d is one of the known data kinds.
func (d DataType) Valid() bool {
	switch d {
	case DataString, DataNumeric, DataDatetime, DataCategorical:
		return true
	}
	return false
}

// AttrSchema is the reserved attribute holding the active schema set per type.
const AttrSchema = "schema"

// Attribute describes a built-in filterable attribute of an entity type.
type Attribute struct {
	ID           string   `yaml:"id" json:"id"`
	FullName     string   `yaml:"fullName" json:"fullName"`
	DataType     DataType `yaml:"dataType" json:"dataType"`
	NestedTarget []string `yaml:"nestedTarget,omitempty" json:"nestedTarget,omitempty"`
}

// Parameter describes one custom metadata parameter of a schema.
type Parameter struct {
	ID       string   `json:"id"`
	FullName string   `json:"fullName"`
	DataType DataType `json:"dataType"`
}

// Schema is a named metadata template attached to one entity type.
type Schema struct {
	ID         string                `json:"id"`
	Name       string                `json:"schemaName"`
	Type       EntityType            `json:"type"`
	Parameters map[string]*Parameter `json:"parameters"`
}

// FieldKind is the closed set of filterable field variants.
type FieldKind int

const (
	KindTypeAttribute FieldKind = iota
	KindSchemaParameter
)

const (
	kindTypeAttributeName   = "typeAttribute"
	kindSchemaParameterName = "schemaParameter"
)

// String returns the wire name of the kind.
func (k FieldKind) String() string {
	switch k {
	case KindTypeAttribute:
		return kindTypeAttributeName
	case KindSchemaParameter:
		return kindSchemaParameterName
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// MarshalJSON encodes the kind as its wire name.
func (k FieldKind) MarshalJSON() ([]byte, error) {
	switch k {
	case KindTypeAttribute, KindSchemaParameter:
		return json.Marshal(k.String())
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
}

// UnmarshalJSON decodes a wire kind name; unknown names are an error.
func (k *FieldKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case kindTypeAttributeName:
		*k = KindTypeAttribute
	case kindSchemaParameterName:
		*k = KindSchemaParameter
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return nil
}

// FieldRef is the unique address of a filterable field. For a type attribute
// the target is [typeID, attributeID, ...nestedTarget]; for a schema
// parameter it is [schemaID, parameterID].
type FieldRef struct {
	Kind   FieldKind `json:"kind"`
	Target []string  `json:"target"`
}

// Equal reports structural equality of kind and target.
func (r FieldRef) Equal(o FieldRef) bool {
	if r.Kind != o.Kind || len(r.Target) != len(o.Target) {
		return false
	}
	for i := range r.Target {
		if r.Target[i] != o.Target[i] {
			return false
		}
	}
	return true
}

// Key returns a stable map key derived from kind and target.
func (r FieldRef) Key() string {
	return r.Kind.String() + ":" + strings.Join(r.Target, "\x1f")
}

// FieldDef is the resolved definition of a field reference: the owning
// entity type and the value kind filters on it must carry.
type FieldDef struct {
	Type     EntityType
	DataType DataType
	FullName string
}
