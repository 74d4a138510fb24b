package squarewebhook

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

// Applier is the reconciler entry point.
type Applier interface {
	Apply(ctx context.Context, event reconciler.Event) (reconciler.Outcome, error)
}

type ServiceParams struct {
	Reconciler Applier
	Logger     *logger.Logger
}

// Service settles square payments that did not finish inside the synchronous
// charge, and picks up refunds issued from the seller dashboard.
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

// Notification is the envelope square posts to webhook subscribers.
type Notification struct {
	MerchantID string           `json:"merchant_id"`
	EventID    string           `json:"event_id"`
	Type       string           `json:"type"`
	CreatedAt  string           `json:"created_at"`
	Data       NotificationData `json:"data"`
}

type NotificationData struct {
	Type   string             `json:"type"`
	ID     string             `json:"id"`
	Object NotificationObject `json:"object"`
}

type NotificationObject struct {
	Payment *sq.Payment `json:"payment,omitempty"`
}

func (s *Service) HandleEvent(ctx context.Context, notification *Notification) error {
	if notification == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square notification required")
	}
	event := Translate(notification)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"square_event_id":   notification.EventID,
		"square_event_type": notification.Type,
	})
	outcome, err := s.reconciler.Apply(ctx, event)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(ctx, "outcome", string(outcome)), "square event handled")
	return nil
}

// Translate maps payment.created and payment.updated notifications. A completed
// payment carrying refunded_money is reported as a refund of that running total.
func Translate(notification *Notification) reconciler.Event {
	out := reconciler.Event{
		Kind:       reconciler.KindUnhandled,
		Gateway:    enums.PaymentGatewaySquare,
		ExternalID: notification.EventID,
	}
	switch strings.ToLower(strings.TrimSpace(notification.Type)) {
	case "payment.created", "payment.updated":
	default:
		return out
	}
	payment := notification.Data.Object.Payment
	if payment == nil || payment.ID == nil {
		return out
	}
	out.TransactionID = *payment.ID

	switch strings.ToUpper(stringValue(payment.Status)) {
	case square.PaymentStatusCompleted:
		if refunded := moneyAmount(payment.RefundedMoney); refunded > 0 {
			out.Kind = reconciler.KindRefunded
			out.RefundedAmount = decimal.New(refunded, -2)
			return out
		}
		out.Kind = reconciler.KindCompleted
		out.GatewayResponse = payments.NormalizeGatewayResponse(payment)
	case square.PaymentStatusFailed:
		out.Kind = reconciler.KindFailed
		out.FailureReason = "Card payment declined"
	case square.PaymentStatusCanceled:
		out.Kind = reconciler.KindFailed
		out.FailureReason = "Payment cancelled"
	}
	return out
}

func moneyAmount(money *sq.Money) int64 {
	if money == nil || money.Amount == nil {
		return 0
	}
	return *money.Amount
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
