package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReservationMetrics counts ledger operations applied by the reconciliation engine.
type ReservationMetrics struct {
	ops      *prometheus.CounterVec
	rejected prometheus.Counter
}

// NewReservationMetrics registers the reservation collectors on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_ledger_ops_total",
		Help: "Ledger operations applied to tag lots.",
	}, []string{"op"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_batches_rejected_total",
		Help: "Reconciliation batches rejected for insufficient stock.",
	})
	reg.MustRegister(ops, rejected)
	return &ReservationMetrics{ops: ops, rejected: rejected}
}

// AddConsumed records consume operations.
func (m *ReservationMetrics) AddConsumed(n int) {
	m.add("consume", n)
}

// AddReleased records release operations.
func (m *ReservationMetrics) AddReleased(n int) {
	m.add("release", n)
}

// IncRejected records a batch rejected before any ledger change.
func (m *ReservationMetrics) IncRejected() {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.Inc()
}

func (m *ReservationMetrics) add(op string, n int) {
	if m == nil || m.ops == nil || n <= 0 {
		return
	}
	m.ops.WithLabelValues(op).Add(float64(n))
}
