package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay attempts made by the outbox publisher.
type OutboxMetrics struct {
	published *prometheus.CounterVec
}

// NewOutboxMetrics registers outbox metrics on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events relayed to the broker by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(published)
	return &OutboxMetrics{published: published}
}

// IncPublished records a relay attempt for eventType.
func (o *OutboxMetrics) IncPublished(eventType string, err error) {
	if o == nil || o.published == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	o.published.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}
