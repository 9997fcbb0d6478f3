// ABOUTME: Result bucket model
// ABOUTME: Raw hit mapping into typed, URL-annotated results

package search

import (
	"encoding/json"
	"fmt"

	"github.com/nainya/facetsearch/pkg/client"
	"github.com/nainya/facetsearch/pkg/registry"
)

// Result is one search hit annotated with its entity type and view URL.
type Result struct {
	ID     string
	Type   registry.EntityType
	URL    string
	Source map[string]any
}

// viewPaths maps each type to its entity view URL pattern.
var viewPaths = map[registry.EntityType]string{
	registry.TypeProject:    "/project/view/%s/",
	registry.TypeExperiment: "/experiment/view/%s/",
	registry.TypeDataset:    "/dataset/%s",
	registry.TypeDatafile:   "/datafile/view/%s/",
}

// mapHits converts a raw search response into per-type result buckets and
// total-hit counts. Buckets are built whole; a malformed hit fails the
// entire mapping so a partial bucket is never stored.
func mapHits(resp *client.SearchResponse) (map[registry.EntityType][]Result, map[registry.EntityType]int, error) {
	buckets := make(map[registry.EntityType][]Result, len(registry.TypeOrder))
	totals := make(map[registry.EntityType]int, len(registry.TypeOrder))

	for _, t := range registry.TypeOrder {
		raws := resp.Hits[t.Plural()]
		results := make([]Result, 0, len(raws))

		for _, raw := range raws {
			r, err := mapHit(t, raw)
			if err != nil {
				return nil, nil, fmt.Errorf("malformed %s hit: %w", t, err)
			}
			results = append(results, r)
		}

		buckets[t] = results
		if total, ok := resp.TotalHits[t.Plural()]; ok {
			totals[t] = total
		} else {
			totals[t] = len(results)
		}
	}

	return buckets, totals, nil
}

// mapHit decodes one raw hit, unwrapping a _source envelope when present.
func mapHit(t registry.EntityType, raw json.RawMessage) (Result, error) {
	var outer map[string]any
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Result{}, err
	}

	source := outer
	if inner, ok := outer["_source"].(map[string]any); ok {
		source = inner
	}

	id := hitID(outer, source)
	r := Result{
		ID:     id,
		Type:   t,
		Source: source,
	}
	if id != "" {
		r.URL = fmt.Sprintf(viewPaths[t], id)
	}
	return r, nil
}

// hitID extracts the entity id, preferring the envelope's _id over the
// source's own id field.
func hitID(outer, source map[string]any) string {
	for _, candidate := range []any{outer["_id"], source["id"]} {
		switch v := candidate.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
