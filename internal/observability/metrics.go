package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	importRows     *prometheus.CounterVec
	batchRetries   prometheus.Counter
	importDuration prometheus.Histogram
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerline_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgerline_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgerline_import_rows_total",
		Help: "Import rows by outcome (imported, failed, skipped).",
	}, []string{"outcome"})
	batchRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledgerline_import_batch_retries_total",
		Help: "Batch write retries caused by transient failures.",
	})
	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgerline_import_duration_seconds",
		Help:    "Wall time of a full import run.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
	registry.MustRegister(requests, duration, importRows, batchRetries, importDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		importRows:      importRows,
		batchRetries:    batchRetries,
		importDuration:  importDuration,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveImport records the outcome counts and duration of one import run.
func (m *Metrics) ObserveImport(imported, failed, skipped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("failed").Add(float64(failed))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
	m.importDuration.Observe(elapsed.Seconds())
}

// ObserveBatchRetry counts one transient-failure retry of a batch write.
func (m *Metrics) ObserveBatchRetry() {
	if m == nil {
		return
	}
	m.batchRetries.Inc()
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
