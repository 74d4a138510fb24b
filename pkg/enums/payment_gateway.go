package enums

import (
	"fmt"
	"strings"
)

// PaymentGateway identifies the provider that moves money for a payment.
type PaymentGateway string

const (
	PaymentGatewayStripe     PaymentGateway = "STRIPE"
	PaymentGatewaySSLCommerz PaymentGateway = "SSLCOMMERZ"
	PaymentGatewaySquare     PaymentGateway = "SQUARE"
	PaymentGatewayCOD        PaymentGateway = "COD"
	PaymentGatewayPayPal     PaymentGateway = "PAYPAL"
	PaymentGatewayRazorpay   PaymentGateway = "RAZORPAY"
)

var validPaymentGateways = []PaymentGateway{
	PaymentGatewayStripe,
	PaymentGatewaySSLCommerz,
	PaymentGatewaySquare,
	PaymentGatewayCOD,
	PaymentGatewayPayPal,
	PaymentGatewayRazorpay,
}

// String implements fmt.Stringer.
func (g PaymentGateway) String() string {
	return string(g)
}

// IsValid reports whether the value is known.
func (g PaymentGateway) IsValid() bool {
	for _, candidate := range validPaymentGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParsePaymentGateway converts raw input into a PaymentGateway. Matching is case-insensitive.
func ParsePaymentGateway(value string) (PaymentGateway, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validPaymentGateways {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway %q", value)
}
