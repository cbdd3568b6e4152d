package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis pipeline.
type Metrics struct {
	// Fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: kind={CME,GST}, outcome={success,error}
	FetchRetries  *prometheus.CounterVec   // labels: kind
	FetchDuration *prometheus.HistogramVec // labels: kind
	CacheLookups  *prometheus.CounterVec   // labels: kind, result={hit,miss}

	// Pipeline metrics.
	RecordsNormalized *prometheus.CounterVec // labels: kind
	RecordsDropped    *prometheus.CounterVec // labels: kind, reason
	LinkOutcomes      *prometheus.CounterVec // labels: outcome
	RunsCompleted     prometheus.Counter
	RunDuration       prometheus.Histogram

	// Export and serving metrics.
	ExportDuration prometheus.Histogram
	WSClients      prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchRetries,
		m.FetchDuration,
		m.CacheLookups,
		m.RecordsNormalized,
		m.RecordsDropped,
		m.LinkOutcomes,
		m.RunsCompleted,
		m.RunDuration,
		m.ExportDuration,
		m.WSClients,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "fetch_requests_total",
			Help:      "DONKI fetch attempts by event kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "fetch_retries_total",
			Help:      "Retries performed after transient fetch failures.",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "space_weather",
			Name:      "fetch_duration_seconds",
			Help:      "DONKI request duration including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "fetch_cache_total",
			Help:      "Fetch cache lookups by event kind and result.",
		}, []string{"kind", "result"}),
		RecordsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "records_normalized_total",
			Help:      "Raw records converted to canonical form, by kind.",
		}, []string{"kind"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "records_dropped_total",
			Help:      "Records skipped during normalization, by kind and reason.",
		}, []string{"kind", "reason"}),
		LinkOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "link_outcomes_total",
			Help:      "Per-link outcomes of the GST-CME cross-reference.",
		}, []string{"outcome"}),
		RunsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "space_weather",
			Name:      "runs_completed_total",
			Help:      "Analysis runs that finished successfully.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "space_weather",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-to-export run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "space_weather",
			Name:      "export_duration_seconds",
			Help:      "Duration of writing all output files for a run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "space_weather",
			Name:      "websocket_clients",
			Help:      "Currently connected websocket clients.",
		}),
	}
}
