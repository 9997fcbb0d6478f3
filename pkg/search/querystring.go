// ABOUTME: Shareable-link codec
// ABOUTME: Parses and encodes the ?q= query-string contract

package search

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nainya/facetsearch/pkg/filter"
	"github.com/nainya/facetsearch/pkg/registry"
)

// ParsedQuery is the decoded ?q= payload: per-type search terms plus an
// optional filter query.
type ParsedQuery struct {
	Query   map[registry.EntityType]string `json:"query"`
	Filters *filter.Query                  `json:"filters,omitempty"`
}

// qEnvelope defers decoding of the query field, which is either a bare
// string or a per-type map.
type qEnvelope struct {
	Query   json.RawMessage `json:"query"`
	Filters *filter.Query   `json:"filters"`
}

// ParseQuery decodes a raw location query string ("?q=..." or "q=...").
// The q value is either a JSON object {query, filters} or, for legacy
// shareable links, a bare string applied verbatim as a contains-term to all
// four entity types; a value that does not decode as JSON takes the
// bare-string path. Percent-encoding is resolved by the URL layer before
// JSON decoding. An absent q yields a nil ParsedQuery.
func ParseQuery(rawQuery string) (*ParsedQuery, error) {
	rawQuery = strings.TrimPrefix(rawQuery, "?")

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("malformed query string: %w", err)
	}
	q := values.Get("q")
	if q == "" {
		return nil, nil
	}

	// Legacy shareable links carry the search text bare, not as JSON: any
	// value that is not well-formed JSON is searched verbatim, including
	// text that merely starts with a brace. Well-formed JSON that fails to
	// decode (unknown field kind, unknown type key) stays an error.
	if !json.Valid([]byte(q)) || !strings.HasPrefix(strings.TrimSpace(q), "{") {
		return legacyQuery(q), nil
	}

	var envelope qEnvelope
	if err := json.Unmarshal([]byte(q), &envelope); err != nil {
		return nil, fmt.Errorf("malformed q payload: %w", err)
	}

	parsed := &ParsedQuery{Filters: envelope.Filters}
	if len(envelope.Query) > 0 {
		var asString string
		if err := json.Unmarshal(envelope.Query, &asString); err == nil {
			parsed.Query = uniformQuery(asString)
		} else {
			var asMap map[registry.EntityType]string
			if err := json.Unmarshal(envelope.Query, &asMap); err != nil {
				return nil, fmt.Errorf("malformed query field: %w", err)
			}
			for t := range asMap {
				if _, err := registry.ParseEntityType(string(t)); err != nil {
					return nil, err
				}
			}
			parsed.Query = asMap
		}
	}
	return parsed, nil
}

// EncodeQuery builds a shareable "?q=" query string from the current term
// and filter query. Returns "" when there is nothing to share.
func EncodeQuery(term string, filters *filter.Query) (string, error) {
	if term == "" && filters == nil {
		return "", nil
	}

	payload := struct {
		Query   string        `json:"query,omitempty"`
		Filters *filter.Query `json:"filters,omitempty"`
	}{Query: term, Filters: filters}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode share link: %w", err)
	}
	return "?q=" + url.QueryEscape(string(encoded)), nil
}

// legacyQuery spreads a bare search string over all four entity types.
func legacyQuery(text string) *ParsedQuery {
	return &ParsedQuery{Query: uniformQuery(text)}
}

func uniformQuery(text string) map[registry.EntityType]string {
	out := make(map[registry.EntityType]string, len(registry.TypeOrder))
	for _, t := range registry.TypeOrder {
		out[t] = text
	}
	return out
}

// Term collapses the per-type query map into the single search-box term:
// a uniform map yields its shared value, otherwise the first non-empty term
// in hierarchy order wins.
func (p *ParsedQuery) Term() string {
	if p == nil || len(p.Query) == 0 {
		return ""
	}

	for _, t := range registry.TypeOrder {
		if term := p.Query[t]; term != "" {
			return term
		}
	}
	return ""
}
