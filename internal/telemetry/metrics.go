package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the platform.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RecordsImported  prometheus.Counter
	LabelsPurchased  prometheus.Counter
	WorkflowFailures *prometheus.CounterVec
}

// NewMetrics creates Prometheus metrics registered on the default registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewTestMetrics registers on a private registry so tests can build several
// instances in one process.
func NewTestMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulkship_requests_total",
				Help: "Total number of backend requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bulkship_request_duration_seconds",
				Help:    "Backend request duration in seconds by operation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		RecordsImported: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bulkship_records_imported_total",
				Help: "Total shipment records imported from CSV uploads",
			},
		),
		LabelsPurchased: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bulkship_labels_purchased_total",
				Help: "Total shipping labels purchased",
			},
		),
		WorkflowFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bulkship_workflow_failures_total",
				Help: "Workflow operation failures by operation and error type",
			},
			[]string{"operation", "error_type"},
		),
	}
}

// RecordRequest records one backend request.
func (m *Metrics) RecordRequest(operation, status string, duration float64) {
	m.RequestsTotal.WithLabelValues(operation, status).Inc()
	m.RequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordFailure records a workflow operation failure.
func (m *Metrics) RecordFailure(operation, errorType string) {
	m.WorkflowFailures.WithLabelValues(operation, errorType).Inc()
}
