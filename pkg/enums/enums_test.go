package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReturnStatusTransitions(t *testing.T) {
	cases := []struct {
		from ReturnStatus
		to   ReturnStatus
		ok   bool
	}{
		{ReturnStatusRequested, ReturnStatusApproved, true},
		{ReturnStatusRequested, ReturnStatusRejected, true},
		{ReturnStatusRequested, ReturnStatusCompleted, false},
		{ReturnStatusApproved, ReturnStatusPickupScheduled, true},
		{ReturnStatusApproved, ReturnStatusRefundProcessed, true},
		{ReturnStatusPickupScheduled, ReturnStatusPickupCompleted, true},
		{ReturnStatusPickupCompleted, ReturnStatusRefundProcessed, true},
		{ReturnStatusRefundProcessed, ReturnStatusCompleted, true},
		{ReturnStatusRejected, ReturnStatusApproved, false},
		{ReturnStatusCompleted, ReturnStatusRequested, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	for _, status := range OrderStatuses() {
		want := status == OrderStatusPending || status == OrderStatusProcessing
		assert.Equal(t, want, status.Cancellable(), string(status))
	}
}

func TestParsePaymentGatewayCaseInsensitive(t *testing.T) {
	gateway, err := ParsePaymentGateway(" stripe ")
	require.NoError(t, err)
	assert.Equal(t, PaymentGatewayStripe, gateway)

	_, err = ParsePaymentGateway("bitcoin")
	require.Error(t, err)
}

func TestDefaultMethodFor(t *testing.T) {
	assert.Equal(t, PaymentMethodCash, DefaultMethodFor(PaymentGatewayCOD))
	assert.Equal(t, PaymentMethodMobileBank, DefaultMethodFor(PaymentGatewaySSLCommerz))
	assert.Equal(t, PaymentMethodCard, DefaultMethodFor(PaymentGatewayStripe))
}

func TestPaymentStatusPredicates(t *testing.T) {
	assert.True(t, PaymentStatusPending.IsOpen())
	assert.True(t, PaymentStatusProcessing.IsOpen())
	assert.False(t, PaymentStatusCompleted.IsOpen())

	assert.True(t, PaymentStatusPartiallyRefunded.IsSettled())
	assert.False(t, PaymentStatusFailed.IsSettled())
}

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, role)

	_, err = ParseUserRole("vendor")
	require.Error(t, err)
}
