package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики сервиса.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	studyUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_uploads_total",
			Help: "Uploaded studies by outcome.",
		},
		[]string{"outcome"},
	)

	studyDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_deletes_total",
			Help: "Study delete attempts by outcome.",
		},
		[]string{"outcome"},
	)

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service considers itself ready.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		studyUploadsTotal,
		studyDeletesTotal,
		readyGauge,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady mirrors the readiness probe result into a gauge.
func SetReady(ready bool) {
	if ready {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// CountStudyUpload records an upload outcome ("ok", "storage_error", "db_error", "rejected").
func CountStudyUpload(outcome string) {
	studyUploadsTotal.WithLabelValues(outcome).Inc()
}

// CountStudyDelete records a delete outcome ("ok", "refused", "not_found", "error").
func CountStudyDelete(outcome string) {
	studyDeletesTotal.WithLabelValues(outcome).Inc()
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath collapses resource identifiers so metric label cardinality
// stays bounded: /api/patients/42/studies -> /api/patients/:id/studies.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads/:file"
	}
	if rest, ok := strings.CutPrefix(path, "/api/patients/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/studies") && strings.Count(rest, "/") == 1 {
			return "/api/patients/:id/studies"
		}
		if !strings.Contains(rest, "/") {
			return "/api/patients/:id"
		}
	}
	if rest, ok := strings.CutPrefix(path, "/api/studies/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/studies/:id"
	}
	return path
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
