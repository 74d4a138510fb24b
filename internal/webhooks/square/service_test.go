package squarewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func decodeNotification(t *testing.T, raw string) *Notification {
	t.Helper()
	var notification Notification
	if err := json.Unmarshal([]byte(raw), &notification); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	return &notification
}

func TestTranslateCompletedPayment(t *testing.T) {
	notification := decodeNotification(t, `{
		"event_id": "evt-1",
		"type": "payment.updated",
		"data": {"type": "payment", "id": "sq-pay-1", "object": {"payment": {
			"id": "sq-pay-1",
			"status": "COMPLETED",
			"amount_money": {"amount": 2000, "currency": "USD"}
		}}}
	}`)
	event := Translate(notification)
	if event.Kind != reconciler.KindCompleted {
		t.Fatalf("expected completed, got %s", event.Kind)
	}
	if event.Gateway != enums.PaymentGatewaySquare || event.TransactionID != "sq-pay-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.ExternalID != "evt-1" {
		t.Fatalf("expected external id evt-1, got %q", event.ExternalID)
	}
}

func TestTranslateRefundedPayment(t *testing.T) {
	notification := decodeNotification(t, `{
		"event_id": "evt-2",
		"type": "payment.updated",
		"data": {"object": {"payment": {
			"id": "sq-pay-1",
			"status": "COMPLETED",
			"refunded_money": {"amount": 750, "currency": "USD"}
		}}}
	}`)
	event := Translate(notification)
	if event.Kind != reconciler.KindRefunded {
		t.Fatalf("expected refunded, got %s", event.Kind)
	}
	if event.RefundedAmount.StringFixed(2) != "7.50" {
		t.Fatalf("expected 7.50, got %s", event.RefundedAmount.StringFixed(2))
	}
}

func TestTranslateFailedAndCanceled(t *testing.T) {
	for status, reason := range map[string]string{
		"FAILED":   "Card payment declined",
		"CANCELED": "Payment cancelled",
	} {
		notification := decodeNotification(t, `{
			"event_id": "evt-3",
			"type": "payment.updated",
			"data": {"object": {"payment": {"id": "sq-pay-2", "status": "`+status+`"}}}
		}`)
		event := Translate(notification)
		if event.Kind != reconciler.KindFailed || event.FailureReason != reason {
			t.Fatalf("%s: unexpected event %+v", status, event)
		}
	}
}

func TestTranslateIgnoresOtherTypes(t *testing.T) {
	notification := decodeNotification(t, `{"event_id": "evt-4", "type": "customer.created", "data": {}}`)
	if event := Translate(notification); event.Kind != reconciler.KindUnhandled {
		t.Fatalf("expected unhandled, got %s", event.Kind)
	}

	pending := decodeNotification(t, `{
		"event_id": "evt-5",
		"type": "payment.created",
		"data": {"object": {"payment": {"id": "sq-pay-3", "status": "APPROVED"}}}
	}`)
	if event := Translate(pending); event.Kind != reconciler.KindUnhandled {
		t.Fatalf("expected approved payment to be unhandled, got %s", event.Kind)
	}
}

func TestHandleEventForwardsToReconciler(t *testing.T) {
	applier := &fakeApplier{}
	svc, err := NewService(ServiceParams{Reconciler: applier, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	notification := decodeNotification(t, `{
		"event_id": "evt-6",
		"type": "payment.updated",
		"data": {"object": {"payment": {"id": "sq-pay-4", "status": "COMPLETED"}}}
	}`)
	if err := svc.HandleEvent(context.Background(), notification); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(applier.events) != 1 || applier.events[0].TransactionID != "sq-pay-4" {
		t.Fatalf("expected event forwarded, got %+v", applier.events)
	}
}

type fakeApplier struct {
	events []reconciler.Event
}

func (f *fakeApplier) Apply(_ context.Context, event reconciler.Event) (reconciler.Outcome, error) {
	f.events = append(f.events, event)
	return reconciler.OutcomeApplied, nil
}
