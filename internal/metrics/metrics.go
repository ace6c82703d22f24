// Package metrics provides Prometheus instrumentation for the greeks engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CalculationsTotal counts kernel calls, partitioned by operation
	// (price, greeks, advice, spot_curve, decay_curve, ...).
	CalculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greeks_calculations_total",
		Help: "Total number of pricing calculations",
	}, []string{"operation"})

	// CalculationErrors counts failed calculations by operation and error
	// class (domain, range, surface, ...).
	CalculationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greeks_calculation_errors_total",
		Help: "Calculations rejected for invalid input",
	}, []string{"operation", "class"})

	// CalculationLatency tracks kernel time per operation.
	CalculationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greeks_calculation_latency_seconds",
		Help:    "Kernel execution latency in seconds",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}, []string{"operation"})

	// CurvePoints records the length of generated series.
	CurvePoints = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greeks_curve_points",
		Help:    "Number of points per generated curve",
		Buckets: []float64{2, 10, 25, 50, 100, 250, 500},
	}, []string{"curve"})

	// AdviceIssued counts advisory messages by severity.
	AdviceIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greeks_advice_issued_total",
		Help: "Advisory messages returned, by severity",
	}, []string{"severity"})

	// BatchSize records the number of items per batch request.
	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "greeks_batch_size",
		Help:    "Items per batch pricing request",
		Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
	})

	// StreamClients tracks connected live-calculator WebSocket clients.
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "greeks_stream_clients",
		Help: "Number of connected live calculator clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "greeks_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "greeks_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveCalculation records one successful kernel call.
func ObserveCalculation(operation string, start time.Time) {
	CalculationsTotal.WithLabelValues(operation).Inc()
	CalculationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label by route pattern so /contracts/{symbol} stays one series.
		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
