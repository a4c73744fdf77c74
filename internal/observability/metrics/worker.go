package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WorkerMetrics covers the decision audit consumer.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	eventsTotal    *prometheus.CounterVec
	eventDocuments *prometheus.HistogramVec
	eventFailures  prometheus.Counter
	eventLag       prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "decisions_total",
			Help:      "Decision events consumed by status.",
		},
		[]string{"service", "status"},
	)
	eventDocuments := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "decision_documents",
			Help:      "Extracted documents per consumed decision.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "status"},
	)
	eventFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "audit",
			Name:        "failed_extractions_total",
			Help:        "Skipped extractions reported by decision events.",
			ConstLabels: constLabels,
		},
	)
	eventLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "audit",
			Name:        "event_lag_seconds",
			Help:        "Delay between decision and consumption.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			ConstLabels: constLabels,
		},
	)

	registry.MustRegister(eventsTotal, eventDocuments, eventFailures, eventLag)

	return &WorkerMetrics{
		service:        service,
		registry:       registry,
		eventsTotal:    eventsTotal,
		eventDocuments: eventDocuments,
		eventFailures:  eventFailures,
		eventLag:       eventLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordDecision(status string, documents, failed int, lag time.Duration) {
	status = bounded(status, decisionStatusLabels)
	m.eventsTotal.WithLabelValues(m.service, status).Inc()
	m.eventDocuments.WithLabelValues(m.service, status).Observe(float64(documents))
	if failed > 0 {
		m.eventFailures.Add(float64(failed))
	}
	if lag >= 0 {
		m.eventLag.Observe(lag.Seconds())
	}
}
