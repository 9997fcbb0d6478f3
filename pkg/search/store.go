// ABOUTME: Search store implementation
// ABOUTME: Term, status machine, sort/pagination and result buckets

package search

import (
	"sync"

	"github.com/nainya/facetsearch/pkg/registry"
)

// Status is the search session's fetch state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	}
	return "unknown"
}

// SortSpec holds a type's sort keys: Active is the priority order, Order
// maps each key to "asc" or "desc".
type SortSpec struct {
	Active []string
	Order  map[string]string
}

// PageSpec holds a type's pagination state.
type PageSpec struct {
	PageNumber int
	PageSize   int
}

// DefaultPageSize is the initial page size for every type.
const DefaultPageSize = 20

// Store owns the search term, per-type sort and pagination, loading/error
// status, and the last fetched result buckets. Responses carry a sequence
// number; only the latest issued sequence may write results, so a slow
// stale response can never overwrite a newer one.
type Store struct {
	mu sync.RWMutex

	term   string
	status Status
	err    string

	results map[registry.EntityType][]Result
	totals  map[registry.EntityType]int

	sorts map[registry.EntityType]*SortSpec
	pages map[registry.EntityType]*PageSpec

	selectedType   registry.EntityType
	selectedResult string

	seq uint64
}

// NewStore creates an idle search store.
func NewStore() *Store {
	s := &Store{
		status:       StatusIdle,
		sorts:        make(map[registry.EntityType]*SortSpec),
		pages:        make(map[registry.EntityType]*PageSpec),
		selectedType: registry.TypeExperiment,
	}
	for _, t := range registry.TypeOrder {
		s.sorts[t] = &SortSpec{Order: make(map[string]string)}
		s.pages[t] = &PageSpec{PageNumber: 1, PageSize: DefaultPageSize}
	}
	return s
}

// UpdateSearchTerm stores the current search text. It never fetches; the
// caller dispatches the search so a batched term+filter change costs one
// network call.
func (s *Store) UpdateSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.term = term
}

// Term returns the current search text.
func (s *Store) Term() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.term
}

// Status returns the fetch state.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Error returns the stored error message, or "".
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Results returns the bucket for a type; nil after an error.
func (s *Store) Results(t registry.EntityType) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.results[t]
	if bucket == nil {
		return nil
	}
	out := make([]Result, len(bucket))
	copy(out, bucket)
	return out
}

// Counts returns total-hit counts per type from the last response.
func (s *Store) Counts() map[registry.EntityType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[registry.EntityType]int, len(s.totals))
	for t, n := range s.totals {
		out[t] = n
	}
	return out
}

// TotalPages derives the page count for a type from its last total-hit
// count and current page size.
func (s *Store) TotalPages(t registry.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.pages[t].PageSize
	if size <= 0 {
		return 0
	}
	return (s.totals[t] + size - 1) / size
}

// begin issues a new search sequence and moves to Loading.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.status = StatusLoading
	return s.seq
}

// latest returns the newest issued sequence number.
func (s *Store) latest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// applyResults installs new buckets wholesale for sequence seq. Returns
// false when the response is stale and was discarded.
func (s *Store) applyResults(seq uint64, buckets map[registry.EntityType][]Result, totals map[registry.EntityType]int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return false
	}
	s.results = buckets
	s.totals = totals
	s.status = StatusLoaded
	s.err = ""
	return true
}

// applyTypeResults replaces a single type's bucket for a scoped refetch.
func (s *Store) applyTypeResults(seq uint64, t registry.EntityType, bucket []Result, total int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return false
	}
	if s.results == nil {
		s.results = make(map[registry.EntityType][]Result)
	}
	if s.totals == nil {
		s.totals = make(map[registry.EntityType]int)
	}
	s.results[t] = bucket
	s.totals[t] = total
	s.status = StatusLoaded
	s.err = ""
	return true
}

// applyError records a failed fetch: buckets are dropped so stale data is
// never shown next to an error message.
func (s *Store) applyError(seq uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		return false
	}
	s.results = nil
	s.totals = nil
	s.status = StatusErrored
	s.err = msg
	return true
}

// UpdateResultSort adds or updates a sort key for a type: new keys are
// pushed onto the priority list, existing keys only change direction.
func (s *Store) UpdateResultSort(t registry.EntityType, attrID, order string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.sorts[t]
	if _, present := spec.Order[attrID]; !present {
		spec.Active = append(spec.Active, attrID)
	}
	spec.Order[attrID] = order
}

// RemoveResultSort drops a sort key from a type's priority list.
func (s *Store) RemoveResultSort(t registry.EntityType, attrID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec := s.sorts[t]
	delete(spec.Order, attrID)
	for i, id := range spec.Active {
		if id == attrID {
			spec.Active = append(spec.Active[:i], spec.Active[i+1:]...)
			break
		}
	}
}

// Sort returns a copy of a type's sort spec.
func (s *Store) Sort(t registry.EntityType) SortSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec := s.sorts[t]
	out := SortSpec{
		Active: make([]string, len(spec.Active)),
		Order:  make(map[string]string, len(spec.Order)),
	}
	copy(out.Active, spec.Active)
	for k, v := range spec.Order {
		out.Order[k] = v
	}
	return out
}

// SetPageNumber moves a type to the given page.
func (s *Store) SetPageNumber(t registry.EntityType, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if page < 1 {
		page = 1
	}
	s.pages[t].PageNumber = page
}

// SetPageSize changes a type's page size and resets it to the first page,
// so the page number can never point past the new total.
func (s *Store) SetPageSize(t registry.EntityType, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if size < 1 {
		size = DefaultPageSize
	}
	s.pages[t].PageSize = size
	s.pages[t].PageNumber = 1
}

// Page returns a copy of a type's pagination spec.
func (s *Store) Page(t registry.EntityType) PageSpec {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.pages[t]
}

// UpdateSelectedType records the result tab the user is viewing.
func (s *Store) UpdateSelectedType(t registry.EntityType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedType = t
}

// SelectedType returns the result tab in view.
func (s *Store) SelectedType() registry.EntityType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedType
}

// UpdateSelectedResult records the result id shown in the preview card.
func (s *Store) UpdateSelectedResult(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedResult = id
}

// SelectedResult returns the previewed result id.
func (s *Store) SelectedResult() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedResult
}
