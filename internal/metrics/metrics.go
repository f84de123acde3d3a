// Package metrics exposes Prometheus counters for spec loads and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Load sources used as the "source" label.
const (
	SourceFile   = "file"
	SourceReload = "reload"
	SourceAPI    = "api"
	SourceParse  = "parse"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	loadsTotal     *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	settingsLoaded prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		loadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specd",
			Name:      "spec_loads_total",
			Help:      "Spec parse attempts by source and result.",
		}, []string{"source", "result"}),
		loadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "specd",
			Name:      "spec_load_duration_seconds",
			Help:      "Time spent parsing spec text.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"source"}),
		settingsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "specd",
			Name:      "settings_loaded",
			Help:      "Distinct keys in the currently served spec.",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}
}

// ObserveLoad records one parse attempt.
func (m *Metrics) ObserveLoad(source string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.loadsTotal.WithLabelValues(source, result).Inc()
	m.loadDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// SetSettingsLoaded records the size of the served spec.
func (m *Metrics) SetSettingsLoaded(n int) {
	if m == nil {
		return
	}
	m.settingsLoaded.Set(float64(n))
}

// InstrumentHandler counts requests passing through next.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return promhttp.InstrumentHandlerCounter(m.requestsTotal, next)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
