package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Payment is one attempt to move money against an order.
type Payment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Gateway         enums.PaymentGateway `gorm:"column:gateway;type:text;not null"`
	Method          enums.PaymentMethod  `gorm:"column:method;type:text;not null"`
	Amount          decimal.Decimal      `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string               `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status          enums.PaymentStatus  `gorm:"column:status;type:text;not null;index"`
	TransactionID   *string              `gorm:"column:transaction_id;uniqueIndex:payments_transaction_id_key"`
	GatewayResponse datatypes.JSON       `gorm:"column:gateway_response"`
	FailureReason   *string              `gorm:"column:failure_reason"`
	RefundedAmount  decimal.Decimal      `gorm:"column:refunded_amount;type:numeric(12,2);not null"`
	RefundReason    *string              `gorm:"column:refund_reason"`
	RefundedAt      *time.Time           `gorm:"column:refunded_at"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Refundable returns the amount still available for refund.
func (p Payment) Refundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

// Invoice is issued once per completed payment.
type Invoice struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceNumber    string          `gorm:"column:invoice_number;not null;uniqueIndex:invoices_invoice_number_key"`
	OrderID          uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentID        uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;uniqueIndex:invoices_payment_id_key"`
	Amount           decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	GatewayReference *string         `gorm:"column:gateway_reference"`
	IssuedAt         time.Time       `gorm:"column:issued_at;not null"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
