// ABOUTME: Search session orchestration
// ABOUTME: Wires registry, filter store, search store and API client

package search

import (
	"context"
	"fmt"
	"time"

	"github.com/nainya/facetsearch/internal/logger"
	"github.com/nainya/facetsearch/internal/metrics"
	"github.com/nainya/facetsearch/pkg/client"
	"github.com/nainya/facetsearch/pkg/filter"
	"github.com/nainya/facetsearch/pkg/registry"
)

// userFacingError is stored on a failed fetch and rendered by the result
// presentation layer.
const userFacingError = "An error occurred. Please try another query or contact support."

// Session is one search page's state: it wires the field registry, filter
// store, search store and API client together. Construct one per page
// entry; independent sessions never share state.
type Session struct {
	reg     *registry.Registry
	filters *filter.Store
	store   *Store
	api     *client.Client
	log     *logger.Logger
	metrics *metrics.Metrics
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger attaches a structured logger.
func WithLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates a session over a registry and API client.
func NewSession(reg *registry.Registry, api *client.Client, opts ...SessionOption) *Session {
	s := &Session{
		reg:     reg,
		filters: filter.NewStore(reg),
		store:   NewStore(),
		api:     api,
		log:     logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the field registry.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Filters returns the filter store.
func (s *Session) Filters() *filter.Store { return s.filters }

// Results returns the search store.
func (s *Session) Results() *Store { return s.store }

// Initialise performs the page-mount sequence: load the schema registry,
// rehydrate term and filters from the location query string, then run the
// first search. A schema load failure stops initialisation without
// clearing any pre-existing filter values.
func (s *Session) Initialise(ctx context.Context, rawQuery string) error {
	if err := s.LoadSchemas(ctx); err != nil {
		return err
	}

	if rawQuery != "" {
		parsed, err := ParseQuery(rawQuery)
		if err != nil {
			return err
		}
		if parsed != nil {
			s.store.UpdateSearchTerm(parsed.Term())
			if err := s.filters.ApplyQuery(parsed.Filters); err != nil {
				return err
			}
		}
	}

	return s.RunSearch(ctx)
}

// LoadSchemas fetches the schema registry through the session's client.
func (s *Session) LoadSchemas(ctx context.Context) error {
	if err := s.reg.LoadSchemas(ctx, s.api); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSchemaFetch("error", 0)
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordSchemaFetch("success", len(s.reg.SchemaIDs()))
	}
	return nil
}

// RunSearch reads the current term and filter state in one step, issues a
// single search request, and installs the response buckets wholesale. A
// response that lost the race to a newer request is discarded silently.
func (s *Session) RunSearch(ctx context.Context) error {
	term := s.store.Term()
	q, err := s.filters.BuildQuery(nil)
	if err != nil {
		return err
	}
	seq := s.store.begin()
	if s.metrics != nil {
		s.metrics.SearchesInFlight.Inc()
		defer s.metrics.SearchesInFlight.Dec()
	}

	start := time.Now()
	resp, err := s.api.Search(ctx, client.SearchRequest{Query: term, Filters: q})
	if err != nil {
		return s.finishWithError(seq, "all", start, err)
	}

	buckets, totals, err := mapHits(resp)
	if err != nil {
		return s.finishWithError(seq, "all", start, err)
	}

	if !s.store.applyResults(seq, buckets, totals) {
		s.discardStale(seq)
		return nil
	}

	if s.metrics != nil {
		for t, n := range totals {
			s.metrics.SearchHitsTotal.WithLabelValues(string(t)).Add(float64(n))
		}
	}
	s.observe(seq, "all", totalOf(totals), start, nil)
	return nil
}

// RunSingleTypeSearch refetches one type's bucket, scoping the filter
// query to the type's ancestor chain and carrying its sort and pagination
// state.
func (s *Session) RunSingleTypeSearch(ctx context.Context, t registry.EntityType) error {
	if _, err := registry.ParseEntityType(string(t)); err != nil {
		return err
	}

	term := s.store.Term()
	q, err := s.filters.BuildQuery(&t)
	if err != nil {
		return err
	}
	page := s.store.Page(t)
	sort := s.store.Sort(t)
	seq := s.store.begin()
	if s.metrics != nil {
		s.metrics.SearchesInFlight.Inc()
		defer s.metrics.SearchesInFlight.Dec()
	}

	req := client.SearchRequest{
		Query:    term,
		Filters:  q,
		Type:     string(t),
		Offset:   (page.PageNumber - 1) * page.PageSize,
		PageSize: page.PageSize,
	}
	for _, attrID := range sort.Active {
		req.Sort = append(req.Sort, client.SortField{Field: attrID, Order: sort.Order[attrID]})
	}

	start := time.Now()
	resp, err := s.api.Search(ctx, req)
	if err != nil {
		return s.finishWithError(seq, string(t), start, err)
	}

	buckets, totals, err := mapHits(resp)
	if err != nil {
		return s.finishWithError(seq, string(t), start, err)
	}

	if !s.store.applyTypeResults(seq, t, buckets[t], totals[t]) {
		s.discardStale(seq)
		return nil
	}

	s.observe(seq, string(t), totals[t], start, nil)
	return nil
}

// UpdatePageNumberAndRefetch moves a type to a page and refetches it.
func (s *Session) UpdatePageNumberAndRefetch(ctx context.Context, t registry.EntityType, page int) error {
	s.store.SetPageNumber(t, page)
	return s.RunSingleTypeSearch(ctx, t)
}

// UpdatePageSizeAndRefetch changes a type's page size (resetting to page
// one) and refetches it.
func (s *Session) UpdatePageSizeAndRefetch(ctx context.Context, t registry.EntityType, size int) error {
	s.store.SetPageSize(t, size)
	return s.RunSingleTypeSearch(ctx, t)
}

// UpdateSortAndRefetch adds or updates a sort key and refetches the type.
func (s *Session) UpdateSortAndRefetch(ctx context.Context, t registry.EntityType, attrID, order string) error {
	s.store.UpdateResultSort(t, attrID, order)
	return s.RunSingleTypeSearch(ctx, t)
}

// RemoveSortAndRefetch drops a sort key and refetches the type.
func (s *Session) RemoveSortAndRefetch(ctx context.Context, t registry.EntityType, attrID string) error {
	s.store.RemoveResultSort(t, attrID)
	return s.RunSingleTypeSearch(ctx, t)
}

// ResetFilters clears every filter and refetches.
func (s *Session) ResetFilters(ctx context.Context) error {
	if err := s.filters.Reset(); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.FilterResets.Inc()
	}
	return s.RunSearch(ctx)
}

// ShareLink encodes the current term and filters into a shareable query
// string.
func (s *Session) ShareLink() (string, error) {
	q, err := s.filters.BuildQuery(nil)
	if err != nil {
		return "", err
	}
	return EncodeQuery(s.store.Term(), q)
}

// finishWithError records a failed fetch unless the response is stale.
func (s *Session) finishWithError(seq uint64, scope string, start time.Time, err error) error {
	if !s.store.applyError(seq, userFacingError) {
		s.discardStale(seq)
		return nil
	}
	s.observe(seq, scope, 0, start, err)
	return fmt.Errorf("search failed: %w", err)
}

// observe logs one finished search and updates metrics.
func (s *Session) observe(seq uint64, scope string, hits int, start time.Time, err error) {
	duration := time.Since(start)
	s.log.LogSearch(seq, scope, hits, duration, err)

	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordSearch(scope, status, duration)

	counts := make(map[string]int)
	for t, n := range s.filters.ActiveFilterCounts() {
		counts[string(t)] = n
	}
	s.metrics.UpdateActiveFilters(counts)
}

// discardStale logs and counts a dropped out-of-date response.
func (s *Session) discardStale(seq uint64) {
	s.log.LogStaleResponse(seq, s.store.latest())
	if s.metrics != nil {
		s.metrics.StaleResponsesTotal.Inc()
	}
}

func totalOf(totals map[registry.EntityType]int) int {
	sum := 0
	for _, n := range totals {
		sum += n
	}
	return sum
}
