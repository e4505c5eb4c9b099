// Package metrics holds the Prometheus collectors constkit exposes on /metrics
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so tests and multiple servers never collide on the global one
type Metrics struct {
	reg *prometheus.Registry

	// HTTP traffic by route pattern, method and status
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Catalog generations by outcome (ok, failed)
	Reloads *prometheus.CounterVec
	// Unix time of the active generation's build
	GenerationBuilt prometheus.Gauge

	// Validator runs by result (passed, violations)
	Validations *prometheus.CounterVec

	// Scans
	FilesScanned      prometheus.Counter
	Occurrences       *prometheus.CounterVec
	ScanWarnings      prometheus.Counter
	ReviewTransitions *prometheus.CounterVec
}

// New creates a registry with Go/process collectors and every constkit metric registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "constkit_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "constkit_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route"}),
		Reloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "constkit_catalog_reloads_total",
			Help: "Catalog generation reloads by outcome",
		}, []string{"outcome"}),
		GenerationBuilt: f.NewGauge(prometheus.GaugeOpts{
			Name: "constkit_catalog_generation_built_timestamp_seconds",
			Help: "Build time of the active catalog generation",
		}),
		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "constkit_validations_total",
			Help: "Validator runs by result",
		}, []string{"result"}),
		FilesScanned: f.NewCounter(prometheus.CounterOpts{
			Name: "constkit_scan_files_total",
			Help: "Files visited by the migration analyzer",
		}),
		Occurrences: f.NewCounterVec(prometheus.CounterOpts{
			Name: "constkit_scan_occurrences_total",
			Help: "Literal occurrences found by domain",
		}, []string{"domain"}),
		ScanWarnings: f.NewCounter(prometheus.CounterOpts{
			Name: "constkit_scan_warnings_total",
			Help: "Files skipped with a warning",
		}),
		ReviewTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "constkit_review_transitions_total",
			Help: "Review ledger transitions by target state",
		}, []string{"state"}),
	}
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one finished HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveReload records a reload attempt; built is the new generation's build time on success
func (m *Metrics) ObserveReload(err error, built time.Time) {
	if m == nil {
		return
	}
	if err != nil {
		m.Reloads.WithLabelValues("failed").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
	m.GenerationBuilt.Set(float64(built.Unix()))
}

// ObserveValidation records a validator run
func (m *Metrics) ObserveValidation(violations int) {
	if m == nil {
		return
	}
	if violations == 0 {
		m.Validations.WithLabelValues("passed").Inc()
		return
	}
	m.Validations.WithLabelValues("violations").Inc()
}

// ObserveScanFile records one scanned file
func (m *Metrics) ObserveScanFile(domains []string, warned bool) {
	if m == nil {
		return
	}
	m.FilesScanned.Inc()
	if warned {
		m.ScanWarnings.Inc()
	}
	for _, d := range domains {
		m.Occurrences.WithLabelValues(d).Inc()
	}
}

// ObserveReview records a ledger transition
func (m *Metrics) ObserveReview(state string) {
	if m == nil {
		return
	}
	m.ReviewTransitions.WithLabelValues(state).Inc()
}
