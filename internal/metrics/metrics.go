// Package metrics provides Prometheus metrics for the faceted search client
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the search client
type Metrics struct {
	// Search dispatch metrics
	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration prometheus.Histogram
	SearchesInFlight      prometheus.Gauge
	SearchHitsTotal       *prometheus.CounterVec
	StaleResponsesTotal   prometheus.Counter

	// Schema registry metrics
	SchemaFetchesTotal *prometheus.CounterVec
	SchemasLoaded      prometheus.Gauge

	// Filter store metrics
	ActiveFilters *prometheus.GaugeVec
	FilterResets  prometheus.Counter

	// Process metrics
	UptimeSeconds prometheus.Gauge
	StartTime     time.Time
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		StartTime: time.Now(),
	}

	m.SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facetsearch_requests_total",
			Help: "Total number of search requests dispatched",
		},
		[]string{"scope", "status"},
	)

	m.SearchRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facetsearch_request_duration_seconds",
			Help:    "Duration of search requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.SearchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facetsearch_requests_in_flight",
			Help: "Number of search requests currently awaiting a response",
		},
	)

	m.SearchHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facetsearch_hits_total",
			Help: "Total number of search hits returned, by entity type",
		},
		[]string{"type"},
	)

	m.StaleResponsesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "facetsearch_stale_responses_total",
			Help: "Total number of search responses discarded as stale",
		},
	)

	m.SchemaFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facetsearch_schema_fetches_total",
			Help: "Total number of schema registry fetches",
		},
		[]string{"status"},
	)

	m.SchemasLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facetsearch_schemas_loaded",
			Help: "Number of schemas currently loaded in the registry",
		},
	)

	m.ActiveFilters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "facetsearch_active_filters",
			Help: "Number of active filters, by entity type",
		},
		[]string{"type"},
	)

	m.FilterResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "facetsearch_filter_resets_total",
			Help: "Total number of filter reset operations",
		},
	)

	m.UptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "facetsearch_uptime_seconds",
			Help: "Client process uptime in seconds",
		},
	)

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime periodically updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.UptimeSeconds.Set(time.Since(m.StartTime).Seconds())
	}
}

// RecordSearch records a dispatched search with its outcome
func (m *Metrics) RecordSearch(scope, status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(scope, status).Inc()
	m.SearchRequestDuration.Observe(duration.Seconds())
}

// RecordSchemaFetch records a schema registry fetch
func (m *Metrics) RecordSchemaFetch(status string, loaded int) {
	m.SchemaFetchesTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.SchemasLoaded.Set(float64(loaded))
	}
}

// UpdateActiveFilters updates the per-type active filter gauges
func (m *Metrics) UpdateActiveFilters(counts map[string]int) {
	for t, n := range counts {
		m.ActiveFilters.WithLabelValues(t).Set(float64(n))
	}
}
