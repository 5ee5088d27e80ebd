// Package monitoring provides Prometheus metrics, OpenTelemetry tracing and health checks
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alchemorsel/intake/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	quotaDecisions      *prometheus.CounterVec
	extractionsTotal    *prometheus.CounterVec
	extractionDuration  *prometheus.HistogramVec
	nutritionLookups    *prometheus.CounterVec
	importsTotal        prometheus.Counter
	importSourcesFailed prometheus.Counter
}

var (
	_ outbound.MetricsRecorder   = (*MetricsCollector)(nil)
	_ middleware.RequestObserver = (*MetricsCollector)(nil)
)

// NewMetricsCollector registers all metrics on a fresh registry, including Go and process collectors
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &MetricsCollector{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		quotaDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_quota_decisions_total",
				Help: "Quota decisions by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		extractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_extractions_total",
				Help: "Model extractions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		extractionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intake_extraction_duration_seconds",
				Help:    "Model extraction duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
			},
			[]string{"provider"},
		),
		nutritionLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_nutrition_lookups_total",
				Help: "Nutrition lookups by result",
			},
			[]string{"result"},
		),
		importsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "intake_imports_total",
				Help: "Completed multi-source imports",
			},
		),
		importSourcesFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "intake_import_sources_failed_total",
				Help: "Sources that failed within completed imports",
			},
		),
	}
}

// Registry returns the underlying registry
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTPRequest records one HTTP request
func (m *MetricsCollector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// QuotaDecision records a quota gate decision
func (m *MetricsCollector) QuotaDecision(tier string, allowed, degraded bool) {
	outcome := "denied"
	switch {
	case degraded:
		outcome = "degraded"
	case allowed:
		outcome = "allowed"
	}
	m.quotaDecisions.WithLabelValues(tier, outcome).Inc()
}

// ExtractionCompleted records one model extraction
func (m *MetricsCollector) ExtractionCompleted(provider, outcome string, duration time.Duration) {
	m.extractionsTotal.WithLabelValues(provider, outcome).Inc()
	m.extractionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// NutritionLookup records whether a lookup yielded usable data
func (m *MetricsCollector) NutritionLookup(found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.nutritionLookups.WithLabelValues(result).Inc()
}

// ImportCompleted records a finished import
func (m *MetricsCollector) ImportCompleted(sources, succeeded int) {
	m.importsTotal.Inc()
	m.importSourcesFailed.Add(float64(sources - succeeded))
}
