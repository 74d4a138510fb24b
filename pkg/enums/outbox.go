package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
	AggregateReturn  OutboxAggregateType = "return"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateReturn,
}

// IsValid reports whether the value is a known aggregate.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event relayed by the outbox publisher.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order.created"
	EventOrderPaid       OutboxEventType = "order.paid"
	EventOrderCancelled  OutboxEventType = "order.cancelled"
	EventOrderShipped    OutboxEventType = "order.shipped"
	EventPaymentFailed   OutboxEventType = "payment.failed"
	EventPaymentRefunded OutboxEventType = "payment.refunded"
	EventReturnRequested OutboxEventType = "return.requested"
	EventReturnApproved  OutboxEventType = "return.approved"

	// EventPaymentRequiresRefund marks money captured for an order that can no longer ship.
	EventPaymentRequiresRefund OutboxEventType = "payment.requires_refund"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderCancelled,
	EventOrderShipped,
	EventPaymentFailed,
	EventPaymentRefunded,
	EventReturnRequested,
	EventReturnApproved,
	EventPaymentRequiresRefund,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
