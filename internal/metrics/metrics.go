package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing metrics
	PaymentsRecordedTotal *prometheus.CounterVec
	PaymentsRejectedTotal *prometheus.CounterVec
	RepairSweepsTotal     prometheus.Counter
	RepairCorrectedTotal  prometheus.Counter
	RepairFailedTotal     prometheus.Counter
	ObligationsByState    *prometheus.GaugeVec

	// Cache metrics
	RevenueCacheHitsTotal   prometheus.Counter
	RevenueCacheMissesTotal prometheus.Counter
	RevenueCacheErrorsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dues_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dues_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PaymentsRecordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dues_payments_recorded_total",
				Help: "Total number of payments recorded",
			},
			[]string{"kind", "frequency"},
		),
		PaymentsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dues_payments_rejected_total",
				Help: "Total number of payments rejected, by error code",
			},
			[]string{"code"},
		),
		RepairSweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_repair_sweeps_total",
				Help: "Total number of consistency repair sweeps run",
			},
		),
		RepairCorrectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_repair_corrected_total",
				Help: "Total number of obligations corrected by repair sweeps",
			},
		),
		RepairFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_repair_failed_total",
				Help: "Total number of obligations a repair sweep could not correct",
			},
		),
		ObligationsByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dues_obligations",
				Help: "Active obligations per classification state at the last classification",
			},
			[]string{"state"},
		),
		RevenueCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_revenue_cache_hits_total",
				Help: "Total number of revenue cache hits",
			},
		),
		RevenueCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_revenue_cache_misses_total",
				Help: "Total number of revenue cache misses",
			},
		),
		RevenueCacheErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dues_revenue_cache_errors_total",
				Help: "Total number of revenue cache failures",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PaymentsRecordedTotal,
		m.PaymentsRejectedTotal,
		m.RepairSweepsTotal,
		m.RepairCorrectedTotal,
		m.RepairFailedTotal,
		m.ObligationsByState,
		m.RevenueCacheHitsTotal,
		m.RevenueCacheMissesTotal,
		m.RevenueCacheErrorsTotal,
	)

	return m
}

// RecordClassification publishes the size of each classification bucket.
func (m *Metrics) RecordClassification(overdue, dueSoon, current int) {
	m.ObligationsByState.WithLabelValues("overdue").Set(float64(overdue))
	m.ObligationsByState.WithLabelValues("due_soon").Set(float64(dueSoon))
	m.ObligationsByState.WithLabelValues("current").Set(float64(current))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware instruments requests, labelled by route template so path
// parameters do not explode cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
