// Package metrics exposes normalization counters in Prometheus format.
//
// Metrics live on a private registry rather than the global one, so tests
// and multiple servers in one process do not collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/telemetry/internal/core"
)

const namespace = "telemetry"

// Metrics holds the normalization collectors.
type Metrics struct {
	registry *prometheus.Registry

	files            *prometheus.CounterVec
	rows             prometheus.Counter
	rowsDropped      prometheus.Counter
	coercionFailures *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	inFlight         prometheus.Gauge
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files received, by outcome and pre-parse class.",
		}, []string{"outcome", "class"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Canonical rows produced.",
		}),
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Source rows dropped during normalization.",
		}),
		coercionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercion_failures_total",
			Help:      "Cells of canonical fields that could not be coerced.",
		}, []string{"field"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalize_duration_seconds",
			Help:      "Time spent normalizing one file.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "normalizations_in_flight",
			Help:      "Normalizations currently holding a limiter slot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.files,
		m.rows,
		m.rowsDropped,
		m.coercionFailures,
		m.duration,
		m.inFlight,
	)
	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observation is the outcome of one file.
type Observation struct {
	Class    core.Class
	Outcome  core.Outcome
	Duration time.Duration
	Result   *core.Result // nil unless the file normalized
}

// ObserveImport records one file. Failures are counted for canonical
// fields only; pass-through column names are unbounded and would explode
// the label set.
func (m *Metrics) ObserveImport(o Observation) {
	m.files.WithLabelValues(string(o.Outcome), string(o.Class)).Inc()
	if o.Outcome != core.OutcomeSkipped {
		m.duration.WithLabelValues(string(o.Outcome)).Observe(o.Duration.Seconds())
	}
	if o.Result == nil {
		return
	}

	d := o.Result.Diagnostics
	m.rows.Add(float64(d.RowsOutput))
	m.rowsDropped.Add(float64(d.RowsDropped))
	for col, n := range d.CoercionFailures {
		if f, ok := core.LookupField(col); ok && f.Canonical && n > 0 {
			m.coercionFailures.WithLabelValues(col).Add(float64(n))
		}
	}
}

// Started marks a normalization as in flight; call the returned func when
// it ends.
func (m *Metrics) Started() func() {
	m.inFlight.Inc()
	return m.inFlight.Dec
}
