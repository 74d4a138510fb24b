package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by payment metrics.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
	OutcomeReplay  = "replay"

	// OutcomeRefundRequired counts payments captured for orders that cannot ship.
	OutcomeRefundRequired = "refund_required"
)

// PaymentMetrics tracks outbound gateway calls and inbound reconciliation.
type PaymentMetrics struct {
	gatewayCalls    *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	reconciliations *prometheus.CounterVec
}

// NewPaymentMetrics registers payment metrics on reg. A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	calls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "gateway_requests_total",
		Help:      "Outbound payment gateway requests by gateway, operation and outcome.",
	}, []string{"gateway", "operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of outbound payment gateway requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gateway", "operation"})
	reconciled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "reconciliations_total",
		Help:      "Gateway notifications applied by the reconciler.",
	}, []string{"gateway", "kind", "outcome"})
	reg.MustRegister(calls, latency, reconciled)
	return &PaymentMetrics{
		gatewayCalls:    calls,
		gatewayLatency:  latency,
		reconciliations: reconciled,
	}
}

// ObserveGatewayCall records one outbound call.
func (p *PaymentMetrics) ObserveGatewayCall(gateway, operation string, duration time.Duration, err error) {
	if p == nil || p.gatewayCalls == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	p.gatewayCalls.WithLabelValues(normalizeLabel(gateway), normalizeLabel(operation), outcome).Inc()
	p.gatewayLatency.WithLabelValues(normalizeLabel(gateway), normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncReconciliation records how a gateway notification was handled.
func (p *PaymentMetrics) IncReconciliation(gateway, kind, outcome string) {
	if p == nil || p.reconciliations == nil {
		return
	}
	p.reconciliations.WithLabelValues(normalizeLabel(gateway), normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}
