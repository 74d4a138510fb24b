package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.ObserveGatewayCall("STRIPE", "initiate", 120*time.Millisecond, nil)
	m.ObserveGatewayCall("STRIPE", "initiate", 80*time.Millisecond, errors.New("timeout"))
	m.IncReconciliation("STRIPE", "completed", OutcomeSuccess)
	m.IncReconciliation("STRIPE", "completed", OutcomeReplay)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	family := findMetricFamily(mfs, "storefront_payments_gateway_requests_total")
	require.NotNil(t, family)
	var success, failure float64
	for _, metric := range family.GetMetric() {
		if matchesLabel(metric.GetLabel(), "outcome", OutcomeSuccess) {
			success = metric.GetCounter().GetValue()
		}
		if matchesLabel(metric.GetLabel(), "outcome", OutcomeError) {
			failure = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, success)
	assert.Equal(t, 1.0, failure)

	replays, err := fetchCounterValue(mfs, "storefront_payments_reconciliations_total", "outcome", OutcomeReplay)
	require.NoError(t, err)
	assert.Equal(t, 1.0, replays)

	sum, err := fetchHistogramSum(mfs, "storefront_payments_gateway_request_duration_seconds", "operation", "initiate")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, sum, 0.0001)
}

func TestOutboxMetricsCountsPublishAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order.paid", nil)
	m.IncPublished("order.paid", nil)
	m.IncPublished("order.paid", errors.New("broker down"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	got, err := fetchCounterValue(mfs, "storefront_outbox_events_total", "outcome", OutcomeError)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}
