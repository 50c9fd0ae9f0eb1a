package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/readshelf/internal/core/domain"
)

// Worker outcomes besides the error kinds reported by domain.ErrorKind.
const (
	OutcomeProcessed = "processed"
	OutcomeCached    = "cached"
)

// WorkerMetrics is scoped to one worker process; the service label is
// fixed at construction.
type WorkerMetrics struct {
	registry *prometheus.Registry

	documents    *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inFlight     prometheus.Gauge
	queueLag     prometheus.Histogram
	breakerState *prometheus.GaugeVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	scope := prometheus.Labels{"service": service}
	m := &WorkerMetrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "documents_total",
			Help:        "Queued URLs handled by the worker, by outcome or error kind.",
			ConstLabels: scope,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "document_duration_seconds",
			Help:        "Time spent processing one queued URL.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: scope,
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "documents_in_flight",
			Help:        "Queued URLs currently being processed.",
			ConstLabels: scope,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between enqueueing a URL and the worker picking it up.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 30, 120, 600},
			ConstLabels: scope,
		}),
		breakerState: newBreakerStateGauge(),
	}
	m.registry.MustRegister(m.documents, m.duration, m.inFlight, m.queueLag, m.breakerState)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Begin marks one URL in flight. The returned func must be called exactly
// once with the processing result.
func (m *WorkerMetrics) Begin() func(doc *domain.Document, err error) {
	m.inFlight.Inc()
	start := time.Now()
	return func(doc *domain.Document, err error) {
		m.inFlight.Dec()
		outcome := workerOutcome(doc, err)
		m.documents.WithLabelValues(outcome).Inc()
		m.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

func workerOutcome(doc *domain.Document, err error) string {
	switch {
	case err != nil:
		return domain.ErrorKind(err)
	case doc != nil && doc.Cached:
		return OutcomeCached
	default:
		return OutcomeProcessed
	}
}

// ObserveQueueLag ignores requests without a publish time and clock skew.
func (m *WorkerMetrics) ObserveQueueLag(requestedAt time.Time) {
	if requestedAt.IsZero() {
		return
	}
	if lag := time.Since(requestedAt); lag >= 0 {
		m.queueLag.Observe(lag.Seconds())
	}
}

func (m *WorkerMetrics) RecordBreakerState(operation, state string) {
	setBreakerState(m.breakerState, operation, state)
}
