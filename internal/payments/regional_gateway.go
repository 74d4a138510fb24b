package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/sslcommerz"
)

// RegionalSessionClient is the part of pkg/sslcommerz the gateway calls.
type RegionalSessionClient interface {
	InitSession(ctx context.Context, req sslcommerz.SessionRequest) (*sslcommerz.SessionResponse, error)
}

type RegionalGatewayParams struct {
	Client RegionalSessionClient
	// BackendURL hosts the success/fail/cancel redirects and the IPN listener.
	BackendURL string
}

type regionalGateway struct {
	client     RegionalSessionClient
	backendURL string
}

// NewRegionalGateway builds the hosted payment page gateway.
func NewRegionalGateway(params RegionalGatewayParams) (Gateway, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sslcommerz client required")
	}
	if strings.TrimSpace(params.BackendURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backend url required")
	}
	return &regionalGateway{
		client:     params.Client,
		backendURL: strings.TrimRight(strings.TrimSpace(params.BackendURL), "/"),
	}, nil
}

func (g *regionalGateway) Kind() enums.PaymentGateway { return enums.PaymentGatewaySSLCommerz }

// Initiate uses the payment id as tran_id so the IPN resolves straight to the payment.
func (g *regionalGateway) Initiate(ctx context.Context, checkout Checkout) (*Session, error) {
	if checkout.Order == nil || checkout.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and payment required")
	}
	order := checkout.Order
	tranID := checkout.Payment.ID.String()
	base := g.backendURL + "/api/v1/payments"

	req := sslcommerz.SessionRequest{
		Amount:     order.TotalPrice,
		Currency:   firstNonEmpty(order.Currency, "USD"),
		TranID:     tranID,
		SuccessURL: base + "/sslcommerz/success",
		FailURL:    base + "/sslcommerz/fail",
		CancelURL:  base + "/sslcommerz/cancel",
		IPNURL:     base + "/ipn",
		Customer: sslcommerz.Customer{
			Name:     firstNonEmpty(order.CustomerName, order.ShippingName),
			Email:    order.CustomerEmail,
			Phone:    order.ShippingPhone,
			Address:  order.ShippingAddress,
			City:     order.ShippingCity,
			State:    deref(order.ShippingState),
			Postcode: deref(order.ShippingZip),
			Country:  order.ShippingCountry,
		},
	}
	resp, err := g.client.InitSession(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Session{
		RedirectURL:     resp.GatewayPageURL,
		SessionID:       resp.SessionKey,
		TransactionID:   tranID,
		Status:          enums.PaymentStatusPending,
		GatewayResponse: NormalizeGatewayResponse(map[string]any{"id": resp.SessionKey, "status": resp.Status}),
	}, nil
}

// Refund is recorded locally; merchants settle regional refunds from the gateway panel.
func (g *regionalGateway) Refund(context.Context, *models.Payment, decimal.Decimal, string) error {
	return nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
