// ABOUTME: Filter value model
// ABOUTME: Tagged operator/content terms and merge rules

package filter

import "fmt"

// Op is a filter comparison operator.
type Op string

const (
	OpIs       Op = "is"
	OpContains Op = "contains"
	OpGTE      Op = ">="
	OpLTE      Op = "<="
)

// Valid reports whether o is a known operator.
func (o Op) Valid() bool {
	switch o {
	case OpIs, OpContains, OpGTE, OpLTE:
		return true
	}
	return false
}

// Term is one operator/content pair. Content is a string for text and range
// operators, or a list of ids for "is".
type Term struct {
	Op      Op  `json:"op"`
	Content any `json:"content"`
}

// Value is the full filter value of one field: empty means "no filter",
// a single term for text and exact matches, an ordered >=/<= pair for
// ranges.
type Value []Term

// IsZero reports whether the value clears the field's filter.
func (v Value) IsZero() bool {
	return len(v) == 0
}

// Merge folds a term into the value, replacing an existing term with the
// same operator so a field carries at most one clause per operator.
func (v Value) Merge(t Term) Value {
	for i := range v {
		if v[i].Op == t.Op {
			out := make(Value, len(v))
			copy(out, v)
			out[i] = t
			return out
		}
	}
	out := make(Value, len(v), len(v)+1)
	copy(out, v)
	return append(out, t)
}

// Validate rejects unknown operators.
func (v Value) Validate() error {
	for _, t := range v {
		if !t.Op.Valid() {
			return fmt.Errorf("filter: invalid operator %q", t.Op)
		}
	}
	return nil
}

// Contains builds a free-text value.
func Contains(text string) Value {
	return Value{{Op: OpContains, Content: text}}
}

// Is builds an exact-match value over a set of ids.
func Is(ids ...string) Value {
	content := make([]any, len(ids))
	for i, id := range ids {
		content[i] = id
	}
	return Value{{Op: OpIs, Content: content}}
}

// Range builds an ordered >=/<= pair; empty bounds are omitted.
func Range(min, max string) Value {
	var v Value
	if min != "" {
		v = append(v, Term{Op: OpGTE, Content: min})
	}
	if max != "" {
		v = append(v, Term{Op: OpLTE, Content: max})
	}
	return v
}

// stringContents extracts the string ids held by a term's content,
// accepting both a bare string and a list.
func stringContents(content any) []string {
	switch c := content.(type) {
	case string:
		return []string{c}
	case []string:
		out := make([]string, len(c))
		copy(out, c)
		return out
	case []any:
		var out []string
		for _, item := range c {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	}
	return nil
}
