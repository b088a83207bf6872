package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for the extraction agent.
type Metrics struct {
	Registry        *prometheus.Registry
	RunsTotal       *prometheus.CounterVec
	TablesTotal     prometheus.Counter
	RecordsTotal    prometheus.Counter
	ErrorsTotal     *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_runs_total",
			Help: "Total extraction runs by mode (live, demo).",
		},
		[]string{"mode"},
	)
	tables := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_tables_processed_total",
			Help: "Total statistical tables processed.",
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "extractor_records_emitted_total",
			Help: "Total normalized records emitted to the sink.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extractor_errors_total",
			Help: "Total extraction errors by scope (run, table, chart, sink).",
		},
		[]string{"scope"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extractor_request_duration_seconds",
			Help:    "Upstream API request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(runs, tables, records, errorsTotal, requestDuration)

	return &Metrics{
		Registry:        registry,
		RunsTotal:       runs,
		TablesTotal:     tables,
		RecordsTotal:    records,
		ErrorsTotal:     errorsTotal,
		RequestDuration: requestDuration,
	}
}

// IncRun increments the run counter for a mode label.
func (m *Metrics) IncRun(mode string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode).Inc()
}

// IncTables adds processed tables.
func (m *Metrics) IncTables(n int) {
	if m == nil {
		return
	}
	m.TablesTotal.Add(float64(n))
}

// IncRecords adds emitted records.
func (m *Metrics) IncRecords(n int) {
	if m == nil {
		return
	}
	m.RecordsTotal.Add(float64(n))
}

// IncError increments the error counter for a scope label.
func (m *Metrics) IncError(scope string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(scope).Inc()
}

// ObserveDuration records one upstream request latency.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}
