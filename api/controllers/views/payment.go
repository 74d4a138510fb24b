package views

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type Payment struct {
	ID              uuid.UUID            `json:"id"`
	OrderID         uuid.UUID            `json:"orderId"`
	Gateway         enums.PaymentGateway `json:"gateway"`
	Method          enums.PaymentMethod  `json:"method"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        string               `json:"currency"`
	Status          enums.PaymentStatus  `json:"status"`
	TransactionID   *string              `json:"transactionId,omitempty"`
	GatewayResponse json.RawMessage      `json:"gatewayResponse,omitempty"`
	FailureReason   *string              `json:"failureReason,omitempty"`
	RefundedAmount  decimal.Decimal      `json:"refundedAmount"`
	RefundReason    *string              `json:"refundReason,omitempty"`
	RefundedAt      *time.Time           `json:"refundedAt,omitempty"`
	PaidAt          *time.Time           `json:"paidAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

type Invoice struct {
	ID               uuid.UUID       `json:"id"`
	InvoiceNumber    string          `json:"invoiceNumber"`
	PaymentID        uuid.UUID       `json:"paymentId"`
	Amount           decimal.Decimal `json:"amount"`
	GatewayReference *string         `json:"gatewayReference,omitempty"`
	IssuedAt         time.Time       `json:"issuedAt"`
}

// InitiateResult tells the client where to send the customer next. RedirectURL
// is empty for synchronous gateways and cash on delivery.
type InitiateResult struct {
	Payment     Payment `json:"payment"`
	RedirectURL string  `json:"redirectUrl,omitempty"`
	SessionID   string  `json:"sessionId,omitempty"`
}

func NewPayment(payment *models.Payment) Payment {
	if payment == nil {
		return Payment{}
	}
	out := Payment{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		Gateway:        payment.Gateway,
		Method:         payment.Method,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Status:         payment.Status,
		TransactionID:  payment.TransactionID,
		FailureReason:  payment.FailureReason,
		RefundedAmount: payment.RefundedAmount,
		RefundReason:   payment.RefundReason,
		RefundedAt:     payment.RefundedAt,
		PaidAt:         payment.PaidAt,
		CreatedAt:      payment.CreatedAt,
		UpdatedAt:      payment.UpdatedAt,
	}
	if len(payment.GatewayResponse) > 0 {
		out.GatewayResponse = json.RawMessage(payment.GatewayResponse)
	}
	return out
}

func NewPayments(rows []models.Payment) []Payment {
	out := make([]Payment, 0, len(rows))
	for i := range rows {
		out = append(out, NewPayment(&rows[i]))
	}
	return out
}

func NewInvoice(invoice models.Invoice) Invoice {
	return Invoice{
		ID:               invoice.ID,
		InvoiceNumber:    invoice.InvoiceNumber,
		PaymentID:        invoice.PaymentID,
		Amount:           invoice.Amount,
		GatewayReference: invoice.GatewayReference,
		IssuedAt:         invoice.IssuedAt,
	}
}

func NewInitiateResult(result *payments.InitiateResult) InitiateResult {
	if result == nil {
		return InitiateResult{}
	}
	return InitiateResult{
		Payment:     NewPayment(result.Payment),
		RedirectURL: result.RedirectURL,
		SessionID:   result.SessionID,
	}
}
