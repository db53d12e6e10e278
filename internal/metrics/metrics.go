// Package metrics exposes Prometheus collectors for dashboard aggregation,
// file queries and the activity sink.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AggregationDuration tracks the latency of each dashboard sub-query
	AggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_dashboard_part_duration_seconds",
		Help:    "Dashboard sub-query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"part"})

	// AggregationFailures counts failed dashboard sub-queries
	AggregationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_dashboard_part_failures_total",
		Help: "Total failed dashboard sub-queries by part",
	}, []string{"part"})

	// ReportCacheLookups counts report cache reads by result (hit, miss, error)
	ReportCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_dashboard_cache_lookups_total",
		Help: "Dashboard report cache lookups by result",
	}, []string{"result"})

	// FileQueryDuration tracks list/count/facet query latency
	FileQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_file_query_duration_seconds",
		Help:    "File query duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"query"})

	// SinkEvents counts activity sink outcomes (written, dropped, failed)
	SinkEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_activity_sink_events_total",
		Help: "Activity log sink events by outcome",
	}, []string{"outcome"})
)

// ObserveSince records the elapsed time since start on h
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
