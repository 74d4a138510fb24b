package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once an order and its stock reservation commit.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"item_count"`
	CouponID    *uuid.UUID      `json:"coupon_id,omitempty"`
}

// OrderPaidEvent is emitted when a payment completes and the invoice is issued.
type OrderPaidEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Gateway       string          `json:"gateway"`
	Amount        decimal.Decimal `json:"amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled and its stock restored.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// OrderShippedEvent is emitted when a shipment is recorded.
type OrderShippedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// PaymentFailedEvent is emitted when a gateway reports a failed payment.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	Gateway   string    `json:"gateway"`
	Reason    string    `json:"reason"`
}

// PaymentRefundedEvent is emitted for every recorded refund.
type PaymentRefundedEvent struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	Full           bool            `json:"full"`
	Reason         string          `json:"reason,omitempty"`
}

// PaymentRequiresRefundEvent is emitted when a payment completes after its order
// was cancelled and the stock could not be reserved again.
type PaymentRequiresRefundEvent struct {
	PaymentID uuid.UUID       `json:"payment_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Gateway   string          `json:"gateway"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// ReturnRequestedEvent is emitted when a customer opens a return.
type ReturnRequestedEvent struct {
	ReturnID     uuid.UUID       `json:"return_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// ReturnApprovedEvent is emitted when an operator approves a return and stock is restored.
type ReturnApprovedEvent struct {
	ReturnID   uuid.UUID `json:"return_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ApprovedBy uuid.UUID `json:"approved_by"`
}
