package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decisions counts reconciliation outcomes by entity kind and action.
	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_poller_decisions_total",
			Help: "Reconciliation decisions by entity kind and action.",
		},
		[]string{"kind", "action"},
	)

	// SkippedAccreditations counts accreditations dropped by the mandatory field rule.
	SkippedAccreditations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "api_poller_skipped_accreditations_total",
		Help: "Accreditations ignored because a mandatory field was missing.",
	})

	// Pages counts fetched pages by resulting job state.
	Pages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_poller_pages_total",
			Help: "Fetched pages by the job state they led to.",
		},
		[]string{"state"},
	)

	// RecordsFetched counts records received from data sources.
	RecordsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "api_poller_records_fetched_total",
		Help: "Records received from data sources.",
	})

	// FetchDuration observes data source call latency by adapter and call.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_poller_fetch_duration_seconds",
			Help:    "Latency of data source calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter", "call"},
	)

	// BatchesPlanned counts planned batches by whether the total was known.
	BatchesPlanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_poller_batches_planned_total",
			Help: "Planned batches by whether the record total was known.",
		},
		[]string{"meta"},
	)

	// HTTPRequests counts API requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_poller_http_requests_total",
			Help: "HTTP requests served.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes API request latency by method and route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_poller_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
