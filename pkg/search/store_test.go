// ABOUTME: Tests for the search store
// ABOUTME: Status machine, stale-sequence discard, sort and pagination

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/facetsearch/pkg/registry"
)

func TestStoreInitialState(t *testing.T) {
	s := NewStore()

	assert.Equal(t, StatusIdle, s.Status())
	assert.Empty(t, s.Term())
	assert.Empty(t, s.Error())
	assert.Equal(t, registry.TypeExperiment, s.SelectedType())

	for _, et := range registry.TypeOrder {
		page := s.Page(et)
		assert.Equal(t, 1, page.PageNumber)
		assert.Equal(t, DefaultPageSize, page.PageSize)
		assert.Empty(t, s.Sort(et).Active)
	}
}

func TestStatusTransitions(t *testing.T) {
	s := NewStore()

	seq := s.begin()
	assert.Equal(t, StatusLoading, s.Status())

	ok := s.applyResults(seq, map[registry.EntityType][]Result{
		registry.TypeExperiment: {{ID: "1", Type: registry.TypeExperiment}},
	}, map[registry.EntityType]int{registry.TypeExperiment: 1})
	require.True(t, ok)
	assert.Equal(t, StatusLoaded, s.Status())
	assert.Len(t, s.Results(registry.TypeExperiment), 1)

	seq = s.begin()
	require.True(t, s.applyError(seq, "nope"))
	assert.Equal(t, StatusErrored, s.Status())
	assert.Equal(t, "nope", s.Error())
	assert.Nil(t, s.Results(registry.TypeExperiment),
		"stale buckets must not be shown next to an error")

	// A later success clears the error.
	seq = s.begin()
	require.True(t, s.applyResults(seq, nil, nil))
	assert.Equal(t, StatusLoaded, s.Status())
	assert.Empty(t, s.Error())
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
	s := NewStore()

	slow := s.begin()
	fast := s.begin()

	// The newer request lands first.
	require.True(t, s.applyResults(fast, map[registry.EntityType][]Result{
		registry.TypeDataset: {{ID: "new", Type: registry.TypeDataset}},
	}, map[registry.EntityType]int{registry.TypeDataset: 1}))

	// The older response loses the race and must change nothing.
	assert.False(t, s.applyResults(slow, map[registry.EntityType][]Result{
		registry.TypeDataset: {{ID: "old", Type: registry.TypeDataset}},
	}, map[registry.EntityType]int{registry.TypeDataset: 9}))
	assert.False(t, s.applyError(slow, "late failure"))
	assert.False(t, s.applyTypeResults(slow, registry.TypeDataset, nil, 0))

	results := s.Results(registry.TypeDataset)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].ID)
	assert.Equal(t, 1, s.Counts()[registry.TypeDataset])
	assert.Equal(t, StatusLoaded, s.Status())
}

func TestApplyTypeResultsReplacesOneBucket(t *testing.T) {
	s := NewStore()

	seq := s.begin()
	require.True(t, s.applyResults(seq, map[registry.EntityType][]Result{
		registry.TypeExperiment: {{ID: "e1", Type: registry.TypeExperiment}},
		registry.TypeDataset:    {{ID: "d1", Type: registry.TypeDataset}},
	}, map[registry.EntityType]int{
		registry.TypeExperiment: 1,
		registry.TypeDataset:    1,
	}))

	seq = s.begin()
	require.True(t, s.applyTypeResults(seq, registry.TypeDataset,
		[]Result{{ID: "d2", Type: registry.TypeDataset}}, 40))

	// The other bucket is untouched.
	require.Len(t, s.Results(registry.TypeExperiment), 1)
	assert.Equal(t, "e1", s.Results(registry.TypeExperiment)[0].ID)
	assert.Equal(t, "d2", s.Results(registry.TypeDataset)[0].ID)
	assert.Equal(t, 40, s.Counts()[registry.TypeDataset])
}

func TestSortKeysPushAndSplice(t *testing.T) {
	s := NewStore()
	dataset := registry.TypeDataset

	s.UpdateResultSort(dataset, "createdTime", "asc")
	s.UpdateResultSort(dataset, "description", "asc")

	// Re-sorting an existing key flips direction without reordering.
	s.UpdateResultSort(dataset, "createdTime", "desc")

	spec := s.Sort(dataset)
	assert.Equal(t, []string{"createdTime", "description"}, spec.Active)
	assert.Equal(t, "desc", spec.Order["createdTime"])

	s.RemoveResultSort(dataset, "createdTime")
	spec = s.Sort(dataset)
	assert.Equal(t, []string{"description"}, spec.Active)
	_, present := spec.Order["createdTime"]
	assert.False(t, present)

	// Per-type state: experiment sorts are untouched.
	assert.Empty(t, s.Sort(registry.TypeExperiment).Active)
}

func TestPageSizeChangeResetsPageNumber(t *testing.T) {
	s := NewStore()
	dataset := registry.TypeDataset

	s.SetPageNumber(dataset, 7)
	assert.Equal(t, 7, s.Page(dataset).PageNumber)

	s.SetPageSize(dataset, 50)
	page := s.Page(dataset)
	assert.Equal(t, 50, page.PageSize)
	assert.Equal(t, 1, page.PageNumber, "page must reset so it cannot point past the new total")

	s.SetPageNumber(dataset, 0)
	assert.Equal(t, 1, s.Page(dataset).PageNumber)
	s.SetPageSize(dataset, -5)
	assert.Equal(t, DefaultPageSize, s.Page(dataset).PageSize)
}

func TestTotalPages(t *testing.T) {
	s := NewStore()
	dataset := registry.TypeDataset

	seq := s.begin()
	require.True(t, s.applyTypeResults(seq, dataset, nil, 41))

	assert.Equal(t, 3, s.TotalPages(dataset), "41 hits at 20 per page")

	s.SetPageSize(dataset, 50)
	assert.Equal(t, 1, s.TotalPages(dataset))

	assert.Zero(t, s.TotalPages(registry.TypeDatafile))
}

func TestSelection(t *testing.T) {
	s := NewStore()

	s.UpdateSelectedType(registry.TypeDatafile)
	s.UpdateSelectedResult("df-17")

	assert.Equal(t, registry.TypeDatafile, s.SelectedType())
	assert.Equal(t, "df-17", s.SelectedResult())
}
