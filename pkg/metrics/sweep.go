package metrics

import "github.com/prometheus/client_golang/prometheus"

// SweepMetrics records per-order outcomes of the zero-value finalize sweep.
type SweepMetrics struct {
	orders *prometheus.CounterVec
}

// NewSweepMetrics registers the sweep collectors on the provided registerer.
func NewSweepMetrics(reg prometheus.Registerer) *SweepMetrics {
	if reg == nil {
		return &SweepMetrics{}
	}
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_orders_total",
		Help: "Orders visited by the zero-value sweep, by outcome.",
	}, []string{"result"})
	reg.MustRegister(orders)
	return &SweepMetrics{orders: orders}
}

func (m *SweepMetrics) IncFinalized() { m.inc("finalized") }

func (m *SweepMetrics) IncSkipped() { m.inc("skipped") }

func (m *SweepMetrics) IncFailed() { m.inc("failed") }

func (m *SweepMetrics) inc(result string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(result).Inc()
}
