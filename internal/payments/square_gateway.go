package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/square"
)

// SquarePaymentsClient is the part of pkg/square the gateway calls.
type SquarePaymentsClient interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	RefundPayment(ctx context.Context, params square.RefundParams) (*sq.PaymentRefund, error)
}

type squareGateway struct {
	client SquarePaymentsClient
}

// NewSquareGateway charges a tokenized card synchronously.
func NewSquareGateway(client SquarePaymentsClient) (Gateway, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "square client required")
	}
	return &squareGateway{client: client}, nil
}

func (g *squareGateway) Kind() enums.PaymentGateway { return enums.PaymentGatewaySquare }

func (g *squareGateway) Initiate(ctx context.Context, checkout Checkout) (*Session, error) {
	if checkout.Order == nil || checkout.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and payment required")
	}
	sourceID := strings.TrimSpace(checkout.SourceID)
	if sourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sourceId is required for square payments")
	}
	order := checkout.Order
	// one charge per payment row
	charged, err := g.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    minorUnits(order.TotalPrice),
		Currency:       firstNonEmpty(order.Currency, "USD"),
		SourceID:       sourceID,
		BuyerEmail:     order.CustomerEmail,
		IdempotencyKey: "payment-" + checkout.Payment.ID.String(),
		Note:           "Order " + order.OrderNumber,
		ReferenceID:    order.OrderNumber,
	})
	if err != nil {
		return nil, err
	}
	if charged == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "square returned no payment")
	}

	session := &Session{
		TransactionID:   stringValue(charged.GetID()),
		GatewayResponse: NormalizeGatewayResponse(charged),
	}
	switch strings.ToUpper(stringValue(charged.GetStatus())) {
	case square.PaymentStatusCompleted:
		session.Status = enums.PaymentStatusCompleted
	case square.PaymentStatusFailed:
		session.Status = enums.PaymentStatusFailed
		session.FailureReason = "Card payment declined"
	default:
		session.Status = enums.PaymentStatusProcessing
	}
	return session, nil
}

// Refund refunds against the square payment id stored as the transaction id.
func (g *squareGateway) Refund(ctx context.Context, payment *models.Payment, amount decimal.Decimal, reason string) error {
	if payment == nil || payment.TransactionID == nil || strings.TrimSpace(*payment.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway transaction to refund")
	}
	_, err := g.client.RefundPayment(ctx, square.RefundParams{
		PaymentID:   *payment.TransactionID,
		AmountCents: minorUnits(amount),
		Currency:    firstNonEmpty(payment.Currency, "USD"),
		Reason:      reason,
	})
	return err
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
