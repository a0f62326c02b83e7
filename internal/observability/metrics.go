package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by
// the pipeline stages and the dashboard.
type Metrics struct {
	PagesFetched     *prometheus.CounterVec // labels: source
	RecordsScraped   *prometheus.CounterVec // labels: source
	FetchErrors      *prometheus.CounterVec // labels: source
	CheckpointWrites prometheus.Counter

	NormalizeHits   prometheus.Counter
	NormalizeMisses prometheus.Counter

	RowsMerged      prometheus.Counter
	StageDuration   *prometheus.HistogramVec // labels: stage
	DatasetReloads  prometheus.Counter
	DashboardHits   *prometheus.CounterVec // labels: endpoint
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PagesFetched,
		m.RecordsScraped,
		m.FetchErrors,
		m.CheckpointWrites,
		m.NormalizeHits,
		m.NormalizeMisses,
		m.RowsMerged,
		m.StageDuration,
		m.DatasetReloads,
		m.DashboardHits,
		m.GeocodeRequests,
		m.GeocodeCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "pages_fetched_total",
			Help:      "Directory pages fetched, by source.",
		}, []string{"source"}),
		RecordsScraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "records_scraped_total",
			Help:      "Destination records parsed from directory pages, by source.",
		}, []string{"source"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "fetch_errors_total",
			Help:      "HTTP fetch failures, by source.",
		}, []string{"source"}),
		CheckpointWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "checkpoint_writes_total",
			Help:      "CSV checkpoint files written.",
		}),
		NormalizeHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "normalize_hits_total",
			Help:      "Province names resolved to a canonical name.",
		}),
		NormalizeMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "normalize_misses_total",
			Help:      "Province names left unresolved.",
		}),
		RowsMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "rows_merged_total",
			Help:      "Rows in the merged modeling table.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vntourism",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one pipeline stage run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1800},
		}, []string{"stage"}),
		DatasetReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "dataset_reloads_total",
			Help:      "Dashboard dataset reloads triggered by file changes.",
		}),
		DashboardHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "dashboard_hits_total",
			Help:      "Dashboard API requests, by endpoint.",
		}, []string{"endpoint"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vntourism",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
