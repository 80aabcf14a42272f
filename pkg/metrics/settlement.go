package metrics

import "github.com/prometheus/client_golang/prometheus"

// SettlementMetrics counts distribution and batching activity.
type SettlementMetrics struct {
	earningsMaterialized prometheus.Counter
	earningsLocked       prometheus.Counter
	paymentsCreated      prometheus.Counter
	paymentsCancelled    prometheus.Counter
	distributionFailures *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement counters on the registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	earningsMaterialized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_earnings_materialized_total",
		Help: "Earnings rows produced by the distribution engine.",
	})
	earningsLocked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_earnings_locked_total",
		Help: "Earnings locked into payments by the batcher.",
	})
	paymentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payments_created_total",
		Help: "Payments created by the batcher.",
	})
	paymentsCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payments_cancelled_total",
		Help: "Superseded payments cancelled by the batcher.",
	})
	distributionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_distribution_failures_total",
		Help: "Sales whose distribution failed, by error code.",
	}, []string{"code"})
	reg.MustRegister(earningsMaterialized, earningsLocked, paymentsCreated, paymentsCancelled, distributionFailures)
	return &SettlementMetrics{
		earningsMaterialized: earningsMaterialized,
		earningsLocked:       earningsLocked,
		paymentsCreated:      paymentsCreated,
		paymentsCancelled:    paymentsCancelled,
		distributionFailures: distributionFailures,
	}
}

// AddEarningsMaterialized records earnings produced for a sale.
func (s *SettlementMetrics) AddEarningsMaterialized(n int) {
	if s == nil || s.earningsMaterialized == nil || n <= 0 {
		return
	}
	s.earningsMaterialized.Add(float64(n))
}

// AddEarningsLocked records earnings locked during batching.
func (s *SettlementMetrics) AddEarningsLocked(n int) {
	if s == nil || s.earningsLocked == nil || n <= 0 {
		return
	}
	s.earningsLocked.Add(float64(n))
}

// IncPaymentCreated records a newly created payment.
func (s *SettlementMetrics) IncPaymentCreated() {
	if s == nil || s.paymentsCreated == nil {
		return
	}
	s.paymentsCreated.Inc()
}

// IncPaymentCancelled records a superseded payment.
func (s *SettlementMetrics) IncPaymentCancelled() {
	if s == nil || s.paymentsCancelled == nil {
		return
	}
	s.paymentsCancelled.Inc()
}

// IncDistributionFailure records a failed distribution by error code.
func (s *SettlementMetrics) IncDistributionFailure(code string) {
	if s == nil || s.distributionFailures == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	s.distributionFailures.WithLabelValues(code).Inc()
}
