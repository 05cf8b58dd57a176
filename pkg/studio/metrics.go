package studio

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the build counters exposed at /metrics. Each server owns its
// registry.
type Metrics struct {
	reg      *prometheus.Registry
	builds   *prometheus.CounterVec
	duration prometheus.Histogram
	bytes    prometheus.Gauge
	warnings prometheus.Counter
}

// NewMetrics registers the build metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxel",
			Name:      "builds_total",
			Help:      "Bundle builds by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "boxel",
			Name:      "build_duration_seconds",
			Help:      "Bundle build latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		bytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boxel",
			Name:      "bundle_bytes",
			Help:      "Size of the last successful bundle.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxel",
			Name:      "build_warnings_total",
			Help:      "Unresolved imports and transform fallbacks.",
		}),
	}
	m.reg.MustRegister(m.builds, m.duration, m.bytes, m.warnings)
	return m
}

func (m *Metrics) observe(r BuildRecord, warnings int) {
	m.builds.WithLabelValues(r.Status).Inc()
	m.duration.Observe(float64(r.DurationMS) / 1000)
	if r.Status == StatusOK {
		m.bytes.Set(float64(r.Bytes))
	}
	m.warnings.Add(float64(warnings))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
