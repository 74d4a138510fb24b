package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/sslcommerz"
)

func newCallbacks(t *testing.T, validator *fakeValidator, applier *recordingApplier) *RegionalCallbacks {
	t.Helper()
	callbacks, err := NewRegionalCallbacks(RegionalCallbackParams{
		Validator: validator,
		Applier:   applier,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return callbacks
}

func TestHandleValidatedCompletesPayment(t *testing.T) {
	paymentID := uuid.New()
	validator := &fakeValidator{validation: &sslcommerz.Validation{
		Status:   sslcommerz.ValidationStatusValid,
		TranID:   paymentID.String(),
		ValID:    "val-1",
		Amount:   "42.50",
		Currency: "BDT",
	}}
	applier := &recordingApplier{outcome: reconciler.OutcomeApplied}

	outcome, err := newCallbacks(t, validator, applier).HandleValidated(context.Background(), " val-1 ")
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeApplied, outcome)
	assert.Equal(t, "val-1", validator.valID)

	require.Len(t, applier.events, 1)
	event := applier.events[0]
	assert.Equal(t, reconciler.KindCompleted, event.Kind)
	assert.Equal(t, enums.PaymentGatewaySSLCommerz, event.Gateway)
	assert.Equal(t, paymentID.String(), event.TransactionID)
	require.NotNil(t, event.PaymentID)
	assert.Equal(t, paymentID, *event.PaymentID)
	assert.JSONEq(t, `{"id":"val-1","status":"VALID","amount":"42.50","currency":"BDT"}`, string(event.GatewayResponse))
	require.NotNil(t, event.Amount)
	assert.Equal(t, "42.50", event.Amount.StringFixed(2))
	assert.Equal(t, "BDT", event.Currency)
}

func TestHandleValidatedRejectsInvalidPayment(t *testing.T) {
	validator := &fakeValidator{validation: &sslcommerz.Validation{Status: "INVALID_TRANSACTION"}}
	applier := &recordingApplier{}

	_, err := newCallbacks(t, validator, applier).HandleValidated(context.Background(), "val-2")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, applier.events)
}

func TestHandleValidatedWrapsTransportErrors(t *testing.T) {
	validator := &fakeValidator{err: errors.New("dial tcp: timeout")}
	_, err := newCallbacks(t, validator, &recordingApplier{}).HandleValidated(context.Background(), "val-3")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))

	_, err = newCallbacks(t, &fakeValidator{}, &recordingApplier{}).HandleValidated(context.Background(), "  ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleFailureAppliesConfirmedFailure(t *testing.T) {
	validator := &fakeValidator{query: &sslcommerz.TransactionQuery{
		APIConnect: "DONE",
		Found:      1,
		Elements:   []sslcommerz.Validation{{Status: "CANCELLED", TranID: "not-a-uuid"}},
	}}
	applier := &recordingApplier{outcome: reconciler.OutcomeApplied}
	callbacks := newCallbacks(t, validator, applier)

	_, err := callbacks.HandleFailure(context.Background(), "not-a-uuid", "Payment cancelled by customer")
	require.NoError(t, err)
	assert.Equal(t, "not-a-uuid", validator.tranID)
	require.Len(t, applier.events, 1)
	assert.Equal(t, reconciler.KindFailed, applier.events[0].Kind)
	assert.Equal(t, "not-a-uuid", applier.events[0].TransactionID)
	assert.Nil(t, applier.events[0].PaymentID)
	assert.Equal(t, "Payment cancelled by customer", applier.events[0].FailureReason)

	_, err = callbacks.HandleFailure(context.Background(), "", "x")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestHandleFailureRequiresGatewayConfirmation(t *testing.T) {
	cases := map[string]*fakeValidator{
		"unknown tran_id": {query: &sslcommerz.TransactionQuery{APIConnect: "DONE"}},
		"still in flight": {query: &sslcommerz.TransactionQuery{
			APIConnect: "DONE",
			Found:      2,
			Elements:   []sslcommerz.Validation{{Status: "FAILED"}, {Status: "PENDING"}},
		}},
	}
	for name, validator := range cases {
		t.Run(name, func(t *testing.T) {
			applier := &recordingApplier{}
			outcome, err := newCallbacks(t, validator, applier).HandleFailure(context.Background(), uuid.NewString(), "Payment failed")
			require.NoError(t, err)
			assert.Equal(t, reconciler.OutcomeIgnored, outcome)
			assert.Empty(t, applier.events)
		})
	}

	applier := &recordingApplier{}
	_, err := newCallbacks(t, &fakeValidator{queryErr: errors.New("dial tcp: timeout")}, applier).
		HandleFailure(context.Background(), uuid.NewString(), "Payment failed")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
	assert.Empty(t, applier.events)
}

// regionalPayment opens a PENDING regional payment whose id doubles as tran_id.
func (f *fixture) regionalPayment(t *testing.T) (*models.Order, *models.Payment) {
	t.Helper()
	order, _ := f.placeOrder(t)
	payment, err := f.payments.CreateManual(context.Background(), f.admin, CreateManualInput{
		OrderID: order.ID,
		Gateway: enums.PaymentGatewaySSLCommerz,
		Amount:  order.TotalPrice,
	})
	require.NoError(t, err)
	return order, payment
}

func (f *fixture) reloadPayment(t *testing.T, id uuid.UUID) models.Payment {
	t.Helper()
	var payment models.Payment
	require.NoError(t, f.client.DB().First(&payment, "id = ?", id).Error)
	return payment
}

func (f *fixture) regionalCallbacks(t *testing.T, validator *fakeValidator) *RegionalCallbacks {
	t.Helper()
	callbacks, err := NewRegionalCallbacks(RegionalCallbackParams{
		Validator: validator,
		Applier:   f.reconciler,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return callbacks
}

func TestForgedFailureLeavesPaymentPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, payment := f.regionalPayment(t)

	callbacks := f.regionalCallbacks(t, &fakeValidator{query: &sslcommerz.TransactionQuery{APIConnect: "DONE"}})
	outcome, err := callbacks.HandleFailure(ctx, payment.ID.String(), "Payment failed")
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeIgnored, outcome)

	stored := f.reloadPayment(t, payment.ID)
	assert.Equal(t, enums.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.FailureReason)
	assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t, order.ID).Status)
}

func TestConfirmedFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	_, payment := f.regionalPayment(t)

	callbacks := f.regionalCallbacks(t, &fakeValidator{query: &sslcommerz.TransactionQuery{
		APIConnect: "DONE",
		Found:      1,
		Elements:   []sslcommerz.Validation{{Status: "FAILED", TranID: payment.ID.String()}},
	}})
	outcome, err := callbacks.HandleFailure(context.Background(), payment.ID.String(), "Payment failed")
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeApplied, outcome)

	stored := f.reloadPayment(t, payment.ID)
	assert.Equal(t, enums.PaymentStatusFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Equal(t, "Payment failed", *stored.FailureReason)
}

func TestFailureCallbackForPaidTransactionCompletes(t *testing.T) {
	f := newFixture(t)
	order, payment := f.regionalPayment(t)

	callbacks := f.regionalCallbacks(t, &fakeValidator{query: &sslcommerz.TransactionQuery{
		APIConnect: "DONE",
		Found:      1,
		Elements: []sslcommerz.Validation{{
			Status:   sslcommerz.ValidationStatusValid,
			TranID:   payment.ID.String(),
			ValID:    "val-9",
			Amount:   order.TotalPrice.StringFixed(2),
			Currency: "USD",
		}},
	}})
	outcome, err := callbacks.HandleFailure(context.Background(), payment.ID.String(), "Payment cancelled by customer")
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeApplied, outcome)
	assert.Equal(t, enums.PaymentStatusCompleted, f.reloadPayment(t, payment.ID).Status)
	assert.Equal(t, enums.OrderStatusPaid, f.reloadOrder(t, order.ID).Status)
}

func TestValidatedAmountMismatchIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, payment := f.regionalPayment(t)

	reports := map[string]sslcommerz.Validation{
		"short amount":   {Amount: "1.00", Currency: "USD"},
		"wrong currency": {Amount: order.TotalPrice.StringFixed(2), Currency: "BDT"},
	}
	for name, report := range reports {
		t.Run(name, func(t *testing.T) {
			report.Status = sslcommerz.ValidationStatusValidated
			report.TranID = payment.ID.String()
			report.ValID = "val-" + name
			callbacks := f.regionalCallbacks(t, &fakeValidator{validation: &report})

			_, err := callbacks.HandleValidated(ctx, report.ValID)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
			assert.Equal(t, enums.PaymentStatusPending, f.reloadPayment(t, payment.ID).Status)
			assert.Equal(t, enums.OrderStatusPending, f.reloadOrder(t, order.ID).Status)
		})
	}

	var invoices int64
	require.NoError(t, f.client.DB().Model(&models.Invoice{}).Where("payment_id = ?", payment.ID).Count(&invoices).Error)
	assert.Zero(t, invoices)
}

type fakeValidator struct {
	valID      string
	validation *sslcommerz.Validation
	err        error

	tranID   string
	query    *sslcommerz.TransactionQuery
	queryErr error
}

func (f *fakeValidator) Validate(_ context.Context, valID string) (*sslcommerz.Validation, error) {
	f.valID = valID
	return f.validation, f.err
}

func (f *fakeValidator) QueryTransaction(_ context.Context, tranID string) (*sslcommerz.TransactionQuery, error) {
	f.tranID = tranID
	return f.query, f.queryErr
}

type recordingApplier struct {
	events  []reconciler.Event
	outcome reconciler.Outcome
}

func (r *recordingApplier) Apply(_ context.Context, event reconciler.Event) (reconciler.Outcome, error) {
	r.events = append(r.events, event)
	return r.outcome, nil
}
