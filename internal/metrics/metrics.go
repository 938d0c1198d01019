// Package metrics exposes Prometheus collectors for tally's workloads and
// HTTP status server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	workloadTasksTotal          *prometheus.CounterVec
	workloadTaskDurationSeconds *prometheus.HistogramVec
	workloadActiveWorkers       prometheus.Gauge
	monitorsOpen                prometheus.Gauge
	httpRequestsTotal           *prometheus.CounterVec
	httpRequestDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		workloadTasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_workload_tasks_total",
				Help: "Total number of workload tasks run, labeled by workload and status.",
			},
			[]string{"workload", "status"},
		)

		workloadTaskDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_workload_task_duration_seconds",
				Help:    "Histogram of workload task latencies, labeled by workload.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"workload"},
		)

		workloadActiveWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tally_workload_active_workers",
				Help: "Number of pool workers currently running a task.",
			},
		)

		monitorsOpen = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tally_monitors_open",
				Help: "Number of progress monitors opened by the CLI and not yet closed.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeLabel lowercases name and replaces anything outside [a-z0-9_-]
// with '_'. It returns "unknown" for blank input.
func SanitizeLabel(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return r
		}
		return '_'
	}, name)
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTask records one finished workload task.
func ObserveTask(workload string, err error, duration time.Duration) {
	label := SanitizeLabel(workload)
	status := "success"
	if err != nil {
		status = "error"
	}
	workloadTasksTotal.WithLabelValues(label, status).Inc()
	workloadTaskDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	workloadActiveWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	workloadActiveWorkers.Dec()
}

// MonitorOpened increments the open monitors gauge.
func MonitorOpened() {
	monitorsOpen.Inc()
}

// MonitorClosed decrements the open monitors gauge.
func MonitorClosed() {
	monitorsOpen.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Middleware records request counts and latencies labeled by the matched chi
// route pattern. Init must have been called.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
