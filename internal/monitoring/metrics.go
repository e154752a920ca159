package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for OffsetRunsTotal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

const (
	// LabelInvalid stands in for an out-of-range format or mode.
	LabelInvalid = "invalid"
	// RouteUnmatched labels requests that no registered route handled.
	RouteUnmatched = "unmatched"
)

var (
	offsetRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mosaic_offset_runs_total",
			Help: "Total number of offset determinations by format, mode and outcome.",
		},
		[]string{"format", "mode", "outcome"},
	)

	offsetBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mosaic_offset_batch_exposures",
			Help:    "Number of exposures per offset determination.",
			Buckets: []float64{2, 4, 8, 16, 32, 64, 128},
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mosaic_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mosaic_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(offsetRunsTotal)
	prometheus.MustRegister(offsetBatchSize)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
}

// ObserveOffsetRun records one pipeline invocation over n exposures.
func ObserveOffsetRun(format, mode, outcome string, n int) {
	offsetRunsTotal.WithLabelValues(format, mode, outcome).Inc()
	offsetBatchSize.Observe(float64(n))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// route returns the ServeMux pattern that served r. Raw paths are never used
// as label values since IDs in them would create a series per request.
func route(r *http.Request) string {
	if r.Pattern == "" {
		return RouteUnmatched
	}
	return r.Pattern
}

// Middleware records request count and duration for each request, labelled
// by route pattern. next must be (or wrap) the ServeMux that matches routes.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		rt := route(r)
		httpRequestsTotal.WithLabelValues(rt, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(rt, r.Method).Observe(time.Since(start).Seconds())
	})
}
