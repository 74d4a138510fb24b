package payments

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type initiateRequest struct {
	Gateway  string  `json:"gateway,omitempty"`
	Method   *string `json:"method,omitempty"`
	SourceID string  `json:"sourceId,omitempty"`
}

type createPaymentRequest struct {
	OrderID       uuid.UUID       `json:"orderId" validate:"required"`
	Gateway       string          `json:"gateway" validate:"required"`
	Method        string          `json:"method,omitempty"`
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	TransactionID *string         `json:"transactionId,omitempty"`
	Status        string          `json:"status,omitempty"`
}

type updateStatusRequest struct {
	Status          string           `json:"status" validate:"required"`
	TransactionID   *string          `json:"transactionId,omitempty"`
	FailureReason   *string          `json:"failureReason,omitempty" validate:"omitempty,max=500"`
	GatewayResponse map[string]any   `json:"gatewayResponse,omitempty"`
	RefundedAmount  *decimal.Decimal `json:"refundedAmount,omitempty" validate:"omitempty,gte=0"`
}

type refundRequest struct {
	Amount decimal.Decimal `json:"refundAmount" validate:"gt=0"`
	Reason string          `json:"reason" validate:"required,max=500"`
}
