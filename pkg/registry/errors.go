// Package registry holds the static description of filterable fields:
// built-in type attributes and server-provided schema parameters.
package registry

import "errors"

var (
	// ErrUnknownType indicates an entity type outside the fixed enumeration
	ErrUnknownType = errors.New("registry: unknown entity type")

	// ErrUnknownAttribute indicates an attribute id not configured for the type
	ErrUnknownAttribute = errors.New("registry: unknown attribute")

	// ErrUnknownSchema indicates a schema id missing from the loaded set
	ErrUnknownSchema = errors.New("registry: unknown schema")

	// ErrUnknownParameter indicates a parameter id missing from its schema
	ErrUnknownParameter = errors.New("registry: unknown parameter")

	// ErrUnknownKind indicates a field reference kind outside the closed set
	ErrUnknownKind = errors.New("registry: unknown field kind")

	// ErrBadFieldRef indicates a field reference with a malformed target
	ErrBadFieldRef = errors.New("registry: malformed field reference")
)
