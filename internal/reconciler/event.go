package reconciler

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Kind is the gateway-agnostic meaning of a notification.
type Kind string

const (
	KindCompleted Kind = "completed"
	KindFailed    Kind = "failed"
	KindRefunded  Kind = "refunded"
	KindUnhandled Kind = "unhandled"
)

// Event is what gateway adapters hand to the reconciler. Lookup keys are tried in
// order: SessionID (via the order), TransactionID, PaymentID, OrderID.
type Event struct {
	Kind          Kind
	Gateway       enums.PaymentGateway
	ExternalID    string
	SessionID     string
	TransactionID string
	PaymentID     *uuid.UUID
	OrderID       *uuid.UUID

	// ConfirmedTransactionID replaces the payment's transaction id on completion,
	// e.g. the payment intent behind a checkout session.
	ConfirmedTransactionID string
	RefundedAmount         decimal.Decimal
	FailureReason          string
	GatewayResponse        datatypes.JSON

	// Amount and Currency are what the gateway says it captured. When set, a
	// completion is only applied if they match the payment.
	Amount   *decimal.Decimal
	Currency string
}

// Outcome reports what Apply did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"

	// OutcomeRefundRequired means money was captured for an order that will not ship.
	OutcomeRefundRequired Outcome = "refund_required"
)

// Completion carries the optional data recorded when a payment completes.
type Completion struct {
	TransactionID   string
	GatewayResponse datatypes.JSON
	Actor           *uuid.UUID
}
