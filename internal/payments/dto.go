package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// InitiateInput selects the gateway for an order. SourceID is the tokenized card for square.
type InitiateInput struct {
	Gateway  enums.PaymentGateway
	Method   *enums.PaymentMethod
	SourceID string
}

// InitiateResult is the payment row plus where the customer goes next.
type InitiateResult struct {
	Payment     *models.Payment
	RedirectURL string
	SessionID   string
}

// UpdateStatusInput is the operator override for a payment.
type UpdateStatusInput struct {
	Status          enums.PaymentStatus
	TransactionID   *string
	FailureReason   *string
	GatewayResponse map[string]any
	RefundedAmount  *decimal.Decimal
}

// CreateManualInput records a payment collected outside the gateways.
type CreateManualInput struct {
	OrderID       uuid.UUID
	Gateway       enums.PaymentGateway
	Method        enums.PaymentMethod
	Amount        decimal.Decimal
	Currency      string
	TransactionID *string
	Status        enums.PaymentStatus
}

// RefundInput refunds part or all of a captured payment.
type RefundInput struct {
	Amount decimal.Decimal
	Reason string
}
