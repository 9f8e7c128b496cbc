// Package metrics exposes pipeline counters in the Prometheus format.
//
// A nil *Metrics is valid and records nothing, so callers that do not care
// about metrics (tests, the CLI) can pass nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sweeper"

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	filesIngested    *prometheus.CounterVec
	filesRejected    *prometheus.CounterVec
	exports          *prometheus.CounterVec
	rowsDropped      prometheus.Counter
	cellsFilled      prometheus.Counter
	pipelineDuration prometheus.Histogram
}

// New registers all collectors, including the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		filesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Files parsed successfully, by input format.",
		}, []string{"format"}),
		filesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_rejected_total",
			Help:      "Files whose pipeline failed, by user error code.",
		}, []string{"code"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Artifacts produced, by target format.",
		}, []string{"target"}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_rows_dropped_total",
			Help:      "Duplicate rows removed by the cleaner.",
		}),
		cellsFilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_cells_filled_total",
			Help:      "Missing numeric cells replaced with the column mean.",
		}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent processing a single file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.filesIngested,
		m.filesRejected,
		m.exports,
		m.rowsDropped,
		m.cellsFilled,
		m.pipelineDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FileIngested(format string) {
	if m == nil {
		return
	}
	m.filesIngested.WithLabelValues(format).Inc()
}

func (m *Metrics) FileRejected(code string) {
	if m == nil {
		return
	}
	m.filesRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) Exported(target string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(target).Inc()
}

func (m *Metrics) RowsDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsDropped.Add(float64(n))
}

func (m *Metrics) CellsFilled(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cellsFilled.Add(float64(n))
}

// ObservePipeline records how long one file took end to end.
func (m *Metrics) ObservePipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.Observe(d.Seconds())
}
