// ABOUTME: Tests for hit mapping
// ABOUTME: Source unwrapping, view URLs and whole-bucket failure

package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/facetsearch/pkg/client"
	"github.com/nainya/facetsearch/pkg/registry"
)

func TestMapHitsUnwrapsSourceEnvelope(t *testing.T) {
	resp := &client.SearchResponse{
		Hits: map[string][]json.RawMessage{
			"experiments": {
				json.RawMessage(`{"_id":"7","_source":{"id":7,"title":"Plasma"}}`),
			},
			"datasets": {
				json.RawMessage(`{"id":"12","description":"Run 3"}`),
			},
		},
		TotalHits: map[string]int{"experiments": 120},
	}

	buckets, totals, err := mapHits(resp)
	require.NoError(t, err)

	exp := buckets[registry.TypeExperiment]
	require.Len(t, exp, 1)
	assert.Equal(t, "7", exp[0].ID, "_id beats the source id")
	assert.Equal(t, "/experiment/view/7/", exp[0].URL)
	assert.Equal(t, "Plasma", exp[0].Source["title"])

	ds := buckets[registry.TypeDataset]
	require.Len(t, ds, 1)
	assert.Equal(t, "12", ds[0].ID)
	assert.Equal(t, "/dataset/12", ds[0].URL)

	// Reported total wins over bucket length; absent totals fall back.
	assert.Equal(t, 120, totals[registry.TypeExperiment])
	assert.Equal(t, 1, totals[registry.TypeDataset])
	assert.Zero(t, totals[registry.TypeProject])
}

func TestMapHitsNumericID(t *testing.T) {
	resp := &client.SearchResponse{
		Hits: map[string][]json.RawMessage{
			"datafiles": {json.RawMessage(`{"id":42,"filename":"a.tiff"}`)},
		},
	}

	buckets, _, err := mapHits(resp)
	require.NoError(t, err)
	require.Len(t, buckets[registry.TypeDatafile], 1)
	assert.Equal(t, "42", buckets[registry.TypeDatafile][0].ID)
	assert.Equal(t, "/datafile/view/42/", buckets[registry.TypeDatafile][0].URL)
}

func TestMapHitsMalformedHitFailsWholeMapping(t *testing.T) {
	resp := &client.SearchResponse{
		Hits: map[string][]json.RawMessage{
			"experiments": {
				json.RawMessage(`{"_id":"1"}`),
				json.RawMessage(`not json`),
			},
		},
	}

	buckets, totals, err := mapHits(resp)
	assert.Error(t, err)
	assert.Nil(t, buckets, "a partial bucket must never be returned")
	assert.Nil(t, totals)
}

func TestMapHitsMissingIDYieldsNoURL(t *testing.T) {
	resp := &client.SearchResponse{
		Hits: map[string][]json.RawMessage{
			"projects": {json.RawMessage(`{"name":"Orphan"}`)},
		},
	}

	buckets, _, err := mapHits(resp)
	require.NoError(t, err)
	require.Len(t, buckets[registry.TypeProject], 1)
	assert.Empty(t, buckets[registry.TypeProject][0].ID)
	assert.Empty(t, buckets[registry.TypeProject][0].URL)
}
