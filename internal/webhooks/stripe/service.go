package stripewebhook

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Applier is the reconciler entry point.
type Applier interface {
	Apply(ctx context.Context, event reconciler.Event) (reconciler.Outcome, error)
}

type ServiceParams struct {
	Reconciler Applier
	Logger     *logger.Logger
}

// Service translates verified Stripe events into reconciler events.
type Service struct {
	reconciler Applier
	logg       *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{reconciler: params.Reconciler, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	translated, err := Translate(event)
	if err != nil {
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": string(event.Type),
	})
	outcome, err := s.reconciler.Apply(ctx, translated)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "stripe event handled")
	return nil
}

// Translate maps the Stripe event types the store reacts to. Every other type
// becomes KindUnhandled and is acknowledged.
func Translate(event *stripe.Event) (reconciler.Event, error) {
	out := reconciler.Event{
		Kind:       reconciler.KindUnhandled,
		Gateway:    enums.PaymentGatewayStripe,
		ExternalID: event.ID,
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		// async methods complete the session before the money arrives
		if event.Type == stripe.EventTypeCheckoutSessionCompleted &&
			session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			return out, nil
		}
		out.Kind = reconciler.KindCompleted
		out.SessionID = session.ID
		out.PaymentID, out.OrderID = idsFromMetadata(session.Metadata)
		if session.PaymentIntent != nil {
			out.ConfirmedTransactionID = session.PaymentIntent.ID
		}
		out.GatewayResponse = payments.NormalizeGatewayResponse(event.Data.Raw)

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
		}
		out.Kind = reconciler.KindFailed
		out.SessionID = session.ID
		out.PaymentID, out.OrderID = idsFromMetadata(session.Metadata)
		out.FailureReason = "Asynchronous payment failed"
		if event.Type == stripe.EventTypeCheckoutSessionExpired {
			out.FailureReason = "Checkout session expired"
		}
		out.GatewayResponse = payments.NormalizeGatewayResponse(event.Data.Raw)

	case stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		out.Kind = reconciler.KindFailed
		out.TransactionID = intent.ID
		out.PaymentID, out.OrderID = idsFromMetadata(intent.Metadata)
		out.FailureReason = "Payment failed"
		if intent.LastPaymentError != nil && strings.TrimSpace(intent.LastPaymentError.Msg) != "" {
			out.FailureReason = intent.LastPaymentError.Msg
		}
		out.GatewayResponse = payments.NormalizeGatewayResponse(event.Data.Raw)

	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return out, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		out.Kind = reconciler.KindRefunded
		if charge.PaymentIntent != nil {
			out.TransactionID = charge.PaymentIntent.ID
		}
		out.PaymentID, out.OrderID = idsFromMetadata(charge.Metadata)
		out.RefundedAmount = decimal.New(charge.AmountRefunded, -2)
	}
	return out, nil
}

// idsFromMetadata reads the ids stamped on the checkout session at initiation.
func idsFromMetadata(metadata map[string]string) (paymentID, orderID *uuid.UUID) {
	return parseID(metadata["paymentId"]), parseID(metadata["orderId"])
}

func parseID(raw string) *uuid.UUID {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
