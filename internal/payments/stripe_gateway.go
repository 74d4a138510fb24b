package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// StripeCheckoutClient is the part of pkg/stripe the gateway calls.
type StripeCheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
}

type StripeGatewayParams struct {
	Client     StripeCheckoutClient
	SuccessURL string
	CancelURL  string
}

type stripeGateway struct {
	client     StripeCheckoutClient
	successURL string
	cancelURL  string
}

// NewStripeGateway builds the hosted checkout session gateway.
func NewStripeGateway(params StripeGatewayParams) (Gateway, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if strings.TrimSpace(params.SuccessURL) == "" || strings.TrimSpace(params.CancelURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe redirect urls required")
	}
	return &stripeGateway{
		client:     params.Client,
		successURL: strings.TrimSpace(params.SuccessURL),
		cancelURL:  strings.TrimSpace(params.CancelURL),
	}, nil
}

func (g *stripeGateway) Kind() enums.PaymentGateway { return enums.PaymentGatewayStripe }

func (g *stripeGateway) Initiate(ctx context.Context, checkout Checkout) (*Session, error) {
	if checkout.Order == nil || checkout.Payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order and payment required")
	}
	order := checkout.Order
	currency := strings.ToLower(firstNonEmpty(order.Currency, "usd"))
	orderID := order.ID.String()
	paymentID := checkout.Payment.ID.String()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(withQuery(g.successURL, "order_id", orderID) + "&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(withQuery(g.cancelURL, "order_id", orderID)),
		ClientReferenceID: stripe.String(orderID),
		LineItems:         stripeLineItems(order, checkout.Items, currency),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"orderId":   orderID,
				"paymentId": paymentID,
			},
		},
	}
	if email := strings.TrimSpace(order.CustomerEmail); email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.AddMetadata("orderId", orderID)
	params.AddMetadata("paymentId", paymentID)
	params.AddMetadata("orderNumber", order.OrderNumber)

	sess, err := g.client.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Session{
		RedirectURL:     sess.URL,
		SessionID:       sess.ID,
		TransactionID:   sess.ID,
		Status:          enums.PaymentStatusPending,
		GatewayResponse: NormalizeGatewayResponse(sess),
	}, nil
}

// stripeLineItems mirrors the order items when they add up to the order total.
// A coupon makes them diverge, so the order is then charged as one line.
func stripeLineItems(order *models.Order, items []models.OrderItem, currency string) []*stripe.CheckoutSessionLineItemParams {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.TotalPrice)
	}
	if len(items) > 0 && sum.Equal(order.TotalPrice) {
		lines := make([]*stripe.CheckoutSessionLineItemParams, 0, len(items))
		for _, item := range items {
			name := item.ProductName
			if item.VariantInfo != nil && *item.VariantInfo != "" {
				name = fmt.Sprintf("%s (%s)", name, *item.VariantInfo)
			}
			lines = append(lines, &stripe.CheckoutSessionLineItemParams{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(currency),
					UnitAmount:  stripe.Int64(minorUnits(item.UnitPrice)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)},
				},
				Quantity: stripe.Int64(int64(item.Quantity)),
			})
		}
		return lines
	}
	return []*stripe.CheckoutSessionLineItemParams{{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(currency),
			UnitAmount:  stripe.Int64(minorUnits(order.TotalPrice)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String("Order " + order.OrderNumber)},
		},
		Quantity: stripe.Int64(1),
	}}
}

// Refund refunds against the payment intent recorded when the session completed.
func (g *stripeGateway) Refund(ctx context.Context, payment *models.Payment, amount decimal.Decimal, reason string) error {
	if payment == nil || payment.TransactionID == nil || strings.TrimSpace(*payment.TransactionID) == "" {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has no gateway transaction to refund")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(*payment.TransactionID),
		Amount:        stripe.Int64(minorUnits(amount)),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.AddMetadata("paymentId", payment.ID.String())
	params.AddMetadata("orderId", payment.OrderID.String())
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	_, err := g.client.CreateRefund(ctx, params)
	return err
}

func withQuery(base, key, value string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + key + "=" + url.QueryEscape(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
