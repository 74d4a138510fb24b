package square

import (
	"context"

	sq "github.com/square/square-go-sdk"
)

// PaymentCreateParams describes a card charge in minor units.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	BuyerEmail     string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) request(defaultLocation string) *sq.CreatePaymentRequest {
	location := p.LocationID
	if location == "" {
		location = defaultLocation
	}
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey:    idempotencyKey("payment", p.IdempotencyKey),
		SourceID:          p.SourceID,
		LocationID:        optional(location),
		Autocomplete:      &autocomplete,
		BuyerEmailAddress: optional(p.BuyerEmail),
		Note:              optional(p.Note),
		ReferenceID:       optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		req.AmountMoney = money(p.AmountCents, p.Currency)
	}
	return req
}

// CreatePayment charges a card source. Square answers synchronously with the
// final status, so no webhook is needed to settle the charge.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	req := params.request(c.locationID)
	fields := map[string]any{
		"reference_id": params.ReferenceID,
		"amount_cents": params.AmountCents,
		"source_id":    params.SourceID,
	}
	resp, err := call(ctx, c, "create payment", fields, func(ctx context.Context) (*sq.CreatePaymentResponse, error) {
		return c.sdk.Payments.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.GetPayment(), nil
}
