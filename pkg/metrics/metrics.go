package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the movement engine. A nil
// *Metrics is valid and records nothing, so components can run without a
// registry in tests.
type Metrics struct {
	movementsCommitted *prometheus.CounterVec
	movementsFailed    *prometheus.CounterVec
	batchesProcessed   prometheus.Counter
	batchItems         *prometheus.CounterVec
	approvalsResolved  *prometheus.CounterVec
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movementsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstock_movements_committed_total",
			Help: "Movements committed to the ledger, by type.",
		}, []string{"type"}),
		movementsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstock_movements_failed_total",
			Help: "Movement submissions rejected or aborted, by type.",
		}, []string{"type"}),
		batchesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstock_batches_processed_total",
			Help: "Batches processed.",
		}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstock_batch_items_total",
			Help: "Batch items by outcome.",
		}, []string{"outcome"}),
		approvalsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookstock_approvals_resolved_total",
			Help: "Approval requests resolved, by mode.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.movementsCommitted, m.movementsFailed, m.batchesProcessed, m.batchItems, m.approvalsResolved)
	return m
}

// MovementCommitted records one committed movement.
func (m *Metrics) MovementCommitted(movementType string) {
	if m == nil {
		return
	}
	m.movementsCommitted.WithLabelValues(movementType).Inc()
}

// MovementFailed records one rejected or aborted movement.
func (m *Metrics) MovementFailed(movementType string) {
	if m == nil {
		return
	}
	m.movementsFailed.WithLabelValues(movementType).Inc()
}

// BatchProcessed records one finished batch with its item outcomes.
func (m *Metrics) BatchProcessed(succeeded, failed int) {
	if m == nil {
		return
	}
	m.batchesProcessed.Inc()
	m.batchItems.WithLabelValues("success").Add(float64(succeeded))
	m.batchItems.WithLabelValues("failure").Add(float64(failed))
}

// ApprovalResolved records one resolved approval ("auto", "manual", "rejected").
func (m *Metrics) ApprovalResolved(mode string) {
	if m == nil {
		return
	}
	m.approvalsResolved.WithLabelValues(mode).Inc()
}
