package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ChargeMetrics tracks billing outcomes produced by the charge sweep.
type ChargeMetrics struct {
	outcomes *prometheus.CounterVec
	lapsed   prometheus.Counter
	batch    prometheus.Histogram
}

// NewChargeMetrics registers the charge sweep metrics on the provided registerer.
func NewChargeMetrics(reg prometheus.Registerer) *ChargeMetrics {
	if reg == nil {
		return &ChargeMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_outcomes_total",
		Help: "Charge attempts by outcome code.",
	}, []string{"outcome"})
	lapsed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_lapsed_total",
		Help: "Subscriptions moved to insufficient_balance by a failed charge.",
	})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "charge_batch_size",
		Help:    "Number of subscriptions processed per sweep batch.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
	})
	reg.MustRegister(outcomes, lapsed, batch)
	return &ChargeMetrics{outcomes: outcomes, lapsed: lapsed, batch: batch}
}

// IncOutcome counts a single charge attempt by outcome label.
func (c *ChargeMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncLapsed counts a subscription transitioning to insufficient_balance.
func (c *ChargeMetrics) IncLapsed() {
	if c == nil || c.lapsed == nil {
		return
	}
	c.lapsed.Inc()
}

// ObserveBatchSize records how many subscriptions a sweep batch touched.
func (c *ChargeMetrics) ObserveBatchSize(n int) {
	if c == nil || c.batch == nil {
		return
	}
	c.batch.Observe(float64(n))
}
