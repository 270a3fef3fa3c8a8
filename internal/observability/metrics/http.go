package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legal_rag"

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal      *prometheus.CounterVec
	querySources      *prometheus.HistogramVec
	queryDuration     *prometheus.HistogramVec
	queryNoContext    *prometheus.CounterVec
	upstreamRetries   *prometheus.CounterVec
	breakerTransition *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "answers_total",
			Help:      "Answered questions by endpoint, system label and outcome.",
		},
		[]string{"service", "endpoint", "system", "outcome"},
	)
	querySources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "sources",
			Help:      "Distribution of retrieved legal documents per successful answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint", "system"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Per-question answering duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"service", "endpoint", "system"},
	)
	queryNoContext := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Successful answers produced without any retrieved document.",
		},
		[]string{"service", "endpoint"},
	)
	upstreamRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retries issued against upstream dependencies.",
		},
		[]string{"service", "operation"},
	)
	breakerTransition := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		},
		[]string{"service", "operation", "to"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		querySources,
		queryDuration,
		queryNoContext,
		upstreamRetries,
		breakerTransition,
	)

	return &HTTPServerMetrics{
		service:           service,
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		queriesTotal:      queriesTotal,
		querySources:      querySources,
		queryDuration:     queryDuration,
		queryNoContext:    queryNoContext,
		upstreamRetries:   upstreamRetries,
		breakerTransition: breakerTransition,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/batch_jobs/") && strings.HasSuffix(path, "/report.xlsx"):
		return "/v1/batch_jobs/{job_id}/report.xlsx"
	case strings.HasPrefix(path, "/v1/batch_jobs/"):
		return "/v1/batch_jobs/{job_id}"
	default:
		return path
	}
}

// ObserveQuery records one answered question.
func (m *HTTPServerMetrics) ObserveQuery(endpoint, system string, sourceCount int, outcome string, duration time.Duration) {
	if system == "" {
		system = "unknown"
	}
	m.queriesTotal.WithLabelValues(m.service, endpoint, system, outcome).Inc()
	m.queryDuration.WithLabelValues(m.service, endpoint, system).Observe(duration.Seconds())
	if outcome != "success" {
		return
	}
	m.querySources.WithLabelValues(m.service, endpoint, system).Observe(float64(sourceCount))
	if sourceCount == 0 {
		m.queryNoContext.WithLabelValues(m.service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) OnRetry(operation string, _ int) {
	m.upstreamRetries.WithLabelValues(m.service, operation).Inc()
}

func (m *HTTPServerMetrics) OnBreakerStateChange(operation, _, to string) {
	m.breakerTransition.WithLabelValues(m.service, operation, to).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
