package square

import (
	"context"
	"errors"
	"strings"

	sq "github.com/square/square-go-sdk"
)

// RefundParams refunds part or all of a completed Square payment.
type RefundParams struct {
	PaymentID      string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

func (p RefundParams) request() (*sq.RefundPaymentRequest, error) {
	if strings.TrimSpace(p.PaymentID) == "" {
		return nil, errors.New("square payment id is required for a refund")
	}
	if p.AmountCents <= 0 {
		return nil, errors.New("square refund amount must be positive")
	}
	return &sq.RefundPaymentRequest{
		IdempotencyKey: idempotencyKey("refund", p.IdempotencyKey),
		AmountMoney:    money(p.AmountCents, p.Currency),
		PaymentID:      optional(p.PaymentID),
		Reason:         optional(p.Reason),
	}, nil
}

func (c *Client) RefundPayment(ctx context.Context, params RefundParams) (*sq.PaymentRefund, error) {
	req, err := params.request()
	if err != nil {
		return nil, err
	}
	fields := map[string]any{
		"payment_id":   params.PaymentID,
		"amount_cents": params.AmountCents,
	}
	resp, err := call(ctx, c, "refund payment", fields, func(ctx context.Context) (*sq.RefundPaymentResponse, error) {
		return c.sdk.Refunds.RefundPayment(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.GetRefund(), nil
}
