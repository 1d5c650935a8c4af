package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts ledger service operations by outcome.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger collectors.
func NewLedgerMetrics(registerer prometheus.Registerer) *LedgerMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orion_ledger_operations_total",
		Help: "Ledger operations partitioned by operation and outcome kind.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orion_ledger_operation_duration_seconds",
		Help:    "Ledger transaction duration per operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	registerer.MustRegister(operations, duration)
	return &LedgerMetrics{operations: operations, duration: duration}
}

// ObserveOperation implements accounting.Observer.
func (m *LedgerMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
