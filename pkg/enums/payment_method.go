package enums

import "fmt"

// PaymentMethod describes how the customer pays.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobileBank   PaymentMethod = "MOBILE_BANKING"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodWallet       PaymentMethod = "WALLET"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodMobileBank,
	PaymentMethodBankTransfer,
	PaymentMethodCash,
	PaymentMethodWallet,
}

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is known.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// DefaultMethodFor returns the method implied by a gateway when the caller omits one.
func DefaultMethodFor(gateway PaymentGateway) PaymentMethod {
	switch gateway {
	case PaymentGatewayCOD:
		return PaymentMethodCash
	case PaymentGatewaySSLCommerz:
		return PaymentMethodMobileBank
	case PaymentGatewayPayPal:
		return PaymentMethodWallet
	default:
		return PaymentMethodCard
	}
}
