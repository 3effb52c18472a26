// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Fetch metrics
	FundingRecordsFetched *prometheus.CounterVec
	FundingRecordsStored  *prometheus.CounterVec
	FetchPagesRequested   *prometheus.CounterVec
	FetchErrors           *prometheus.CounterVec
	VenueRequestLatency   *prometheus.HistogramVec

	// Stream metrics
	StreamUpdatesReceived prometheus.Counter
	StreamReconnects      prometheus.Counter

	// Alignment metrics
	EventsAligned       prometheus.Counter
	SubSamplesDropped   *prometheus.CounterVec
	PeriodsInsufficient prometheus.Counter

	// Analysis metrics
	AnalysisRunsTotal *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	TradesSimulated   prometheus.Counter
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulFetch    prometheus.Gauge
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "funding_rate_lab"
	}

	return &Metrics{
		// Fetch metrics
		FundingRecordsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "funding_records_fetched_total",
			Help:      "Total number of funding records fetched by venue",
		}, []string{"venue"}),
		FundingRecordsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "funding_records_stored_total",
			Help:      "Total number of funding records stored to database",
		}, []string{"venue"}),
		FetchPagesRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "pages_requested_total",
			Help:      "Total number of history pages requested by venue",
		}, []string{"venue"}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of fetch errors by venue and type",
		}, []string{"venue", "error_type"}),
		VenueRequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "request_latency_seconds",
			Help:      "Venue API request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"venue"}),

		// Stream metrics
		StreamUpdatesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "updates_received_total",
			Help:      "Total number of funding updates received over WebSocket",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		// Alignment metrics
		EventsAligned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "align",
			Name:      "events_aligned_total",
			Help:      "Total number of aligned events produced",
		}),
		SubSamplesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "align",
			Name:      "sub_samples_dropped_total",
			Help:      "Total number of sub-samples dropped by reason",
		}, []string{"reason"}),
		PeriodsInsufficient: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "align",
			Name:      "periods_insufficient_total",
			Help:      "Total number of periods discarded for insufficient coverage",
		}),

		// Analysis metrics
		AnalysisRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total number of analysis runs by status",
		}, []string{"stage", "status"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Analysis stage duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulFetch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_fetch_timestamp",
			Help:      "Unix timestamp of last successful fetch run",
		}),
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successful analysis run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordFetched records fetched funding records for a venue.
func RecordFetched(venue string, count int) {
	DefaultMetrics.FundingRecordsFetched.WithLabelValues(venue).Add(float64(count))
}

// RecordStored records stored funding records for a venue.
func RecordStored(venue string, count int) {
	DefaultMetrics.FundingRecordsStored.WithLabelValues(venue).Add(float64(count))
}

// RecordPage increments the page request counter for a venue.
func RecordPage(venue string) {
	DefaultMetrics.FetchPagesRequested.WithLabelValues(venue).Inc()
}

// RecordFetchError records a fetch error.
func RecordFetchError(venue, errorType string) {
	DefaultMetrics.FetchErrors.WithLabelValues(venue, errorType).Inc()
}

// RecordStreamUpdate increments the stream updates counter.
func RecordStreamUpdate() {
	DefaultMetrics.StreamUpdatesReceived.Inc()
}

// RecordStreamReconnect increments the stream reconnect counter.
func RecordStreamReconnect() {
	DefaultMetrics.StreamReconnects.Inc()
}

// RecordAligned records produced aligned events.
func RecordAligned(count int) {
	DefaultMetrics.EventsAligned.Add(float64(count))
}

// RecordDroppedSubSample records a dropped sub-sample.
func RecordDroppedSubSample(reason string) {
	DefaultMetrics.SubSamplesDropped.WithLabelValues(reason).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordAnalysisRun records an analysis stage run.
func RecordAnalysisRun(stage, status string, durationSeconds float64) {
	DefaultMetrics.AnalysisRunsTotal.WithLabelValues(stage, status).Inc()
	DefaultMetrics.AnalysisDuration.WithLabelValues(stage).Observe(durationSeconds)
}
