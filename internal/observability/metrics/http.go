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

const namespace = "claims"

// HTTPServerMetrics holds the API process registry: HTTP traffic, pipeline
// outcomes and model call telemetry.
type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	requestRejected *prometheus.CounterVec

	classificationsTotal *prometheus.CounterVec
	extractionsTotal     *prometheus.CounterVec
	decisionsTotal       *prometheus.CounterVec
	claimDocuments       prometheus.Histogram

	llmCallsTotal  *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	llmTokensTotal *prometheus.CounterVec
	parseFallbacks *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &HTTPServerMetrics{
		service:  service,
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total HTTP requests processed.",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"service", "method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "Number of in-flight HTTP requests.", ConstLabels: constLabels,
		}),
		requestRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rejected_total",
			Help: "Requests rejected before reaching the pipeline.",
		}, []string{"service", "reason"}),
		classificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "classifications_total",
			Help: "Classification records by document type.",
		}, []string{"service", "type"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "extractions_total",
			Help: "Field extractions by document type and outcome.",
		}, []string{"service", "type", "outcome"}),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "decisions_total",
			Help: "Claim decisions by status.",
		}, []string{"service", "status"}),
		claimDocuments: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "claim_documents",
			Help:        "Extracted documents per decided claim.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13},
			ConstLabels: constLabels,
		}),
		llmCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "calls_total",
			Help: "Model calls by pipeline step and status.",
		}, []string{"service", "step", "model", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "llm", Name: "call_duration_seconds",
			Help:    "Model call latency by pipeline step.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"service", "step", "model"}),
		llmTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "tokens_total",
			Help: "Token usage reported by the model, by direction.",
		}, []string{"service", "step", "direction", "model"}),
		parseFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "parse_fallbacks_total",
			Help: "Model replies replaced by a fallback record.",
		}, []string{"service", "step"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "resilience", Name: "breaker_open",
			Help: "1 when the circuit breaker for an operation is not closed.",
		}, []string{"service", "operation"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.requestRejected,
		m.classificationsTotal,
		m.extractionsTotal,
		m.decisionsTotal,
		m.claimDocuments,
		m.llmCallsTotal,
		m.llmDuration,
		m.llmTokensTotal,
		m.parseFallbacks,
		m.breakerState,
	)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routePath(r)
		m.requestTotal.WithLabelValues(m.service, r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRejected counts requests refused by rate limiting or backpressure.
func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.requestRejected.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) RecordClassification(docType string) {
	m.classificationsTotal.WithLabelValues(m.service, bounded(docType, documentTypeLabels)).Inc()
}

func (m *HTTPServerMetrics) RecordExtraction(docType, outcome string) {
	m.extractionsTotal.WithLabelValues(m.service, bounded(docType, documentTypeLabels), orUnknown(outcome)).Inc()
}

func (m *HTTPServerMetrics) RecordClaimDecision(status string, documents int) {
	m.decisionsTotal.WithLabelValues(m.service, bounded(status, decisionStatusLabels)).Inc()
	m.claimDocuments.Observe(float64(documents))
}

func (m *HTTPServerMetrics) ObserveLLMCall(step, model string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.llmCallsTotal.WithLabelValues(m.service, orUnknown(step), orUnknown(model), status).Inc()
	m.llmDuration.WithLabelValues(m.service, orUnknown(step), orUnknown(model)).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveTokenUsage(step, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, orUnknown(step), "in", orUnknown(model)).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, orUnknown(step), "out", orUnknown(model)).Add(float64(completionTokens))
	}
}

func (m *HTTPServerMetrics) RecordParseFallback(step string) {
	m.parseFallbacks.WithLabelValues(m.service, orUnknown(step)).Inc()
}

// RecordBreakerState matches resilience.Config.OnStateChange.
func (m *HTTPServerMetrics) RecordBreakerState(operation, _, to string) {
	value := 1.0
	if to == "closed" {
		value = 0
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}

// routePath labels by the matched mux pattern so unknown URLs share one series.
func routePath(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

// Model-supplied values only become labels when they are one of the known
// values; everything else is counted as "unknown".
var (
	documentTypeLabels   = map[string]bool{"bill": true, "discharge_summary": true, "other": true}
	decisionStatusLabels = map[string]bool{"approved": true, "rejected": true, "pending": true}
)

func bounded(value string, known map[string]bool) string {
	if known[value] {
		return value
	}
	return "unknown"
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
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
