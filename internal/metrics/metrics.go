// Package metrics provides Prometheus metrics collection for the SmartPack service.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

const namespace = "smartpack"

// Operation names used as the "operation" label.
const (
	OperationPredict  = "predict_box"
	OperationOptimize = "optimize_pack"
)

// Metrics holds the service collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	PackRunsTotal    *prometheus.CounterVec
	PackRunDuration  *prometheus.HistogramVec
	SpaceUtilization prometheus.Histogram
	BoxesRecommended *prometheus.CounterVec
	CatalogSize      prometheus.Gauge
}

// New creates a Metrics instance with its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	m.PackRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pack_runs_total",
			Help:      "Total number of box predictions and packing runs by outcome",
		},
		[]string{"operation", "outcome"},
	)

	m.PackRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pack_run_duration_seconds",
			Help:      "Box prediction and packing duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"operation"},
	)

	m.SpaceUtilization = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "space_utilization_ratio",
			Help:      "Share of box volume occupied by packed items",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
	)

	m.BoxesRecommended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boxes_recommended_total",
			Help:      "Recommended boxes by catalog name",
		},
		[]string{"box"},
	)

	m.CatalogSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_boxes",
			Help:      "Number of standard boxes in the active catalog",
		},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PackRunsTotal,
		m.PackRunDuration,
		m.SpaceUtilization,
		m.BoxesRecommended,
		m.CatalogSize,
	)

	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count, latency and in-flight requests. Routes
// are labelled by their ServeMux pattern so raw paths never become labels.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	})
}

// RecordPackRun records the duration and outcome of a prediction or packing run.
func (m *Metrics) RecordPackRun(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.PackRunDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.PackRunsTotal.WithLabelValues(operation, Outcome(err)).Inc()
}

// RecordPlan records the utilization of a successful packing plan.
func (m *Metrics) RecordPlan(plan packing.PackingPlan) {
	if m == nil {
		return
	}
	m.SpaceUtilization.Observe(plan.SpaceUtilization)
}

// RecordRecommendation counts a recommended box by name.
func (m *Metrics) RecordRecommendation(box packing.Box) {
	if m == nil {
		return
	}
	m.BoxesRecommended.WithLabelValues(box.Name).Inc()
}

// UpdateCatalogSize sets the active catalog size.
func (m *Metrics) UpdateCatalogSize(n int) {
	if m == nil {
		return
	}
	m.CatalogSize.Set(float64(n))
}

// Outcome maps a packing error to a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, packing.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, packing.ErrInfeasible):
		return "infeasible"
	case errors.Is(err, packing.ErrResourceExceeded):
		return "resource_exceeded"
	default:
		return "error"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
