package enums

import "fmt"

// ReturnStatus tracks a return request through review, pickup and refund.
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "REQUESTED"
	ReturnStatusApproved        ReturnStatus = "APPROVED"
	ReturnStatusRejected        ReturnStatus = "REJECTED"
	ReturnStatusPickupScheduled ReturnStatus = "PICKUP_SCHEDULED"
	ReturnStatusPickupCompleted ReturnStatus = "PICKUP_COMPLETED"
	ReturnStatusRefundProcessed ReturnStatus = "REFUND_PROCESSED"
	ReturnStatusCompleted       ReturnStatus = "COMPLETED"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusPickupScheduled,
	ReturnStatusPickupCompleted,
	ReturnStatusRefundProcessed,
	ReturnStatusCompleted,
}

var returnTransitions = map[ReturnStatus][]ReturnStatus{
	ReturnStatusRequested:       {ReturnStatusApproved, ReturnStatusRejected},
	ReturnStatusApproved:        {ReturnStatusPickupScheduled, ReturnStatusRefundProcessed},
	ReturnStatusPickupScheduled: {ReturnStatusPickupCompleted},
	ReturnStatusPickupCompleted: {ReturnStatusRefundProcessed},
	ReturnStatusRefundProcessed: {ReturnStatusCompleted},
}

// String implements fmt.Stringer.
func (s ReturnStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s ReturnStatus) CanTransitionTo(next ReturnStatus) bool {
	for _, candidate := range returnTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}

// ReturnReason is the customer-declared cause of a return.
type ReturnReason string

const (
	ReturnReasonDefective      ReturnReason = "DEFECTIVE"
	ReturnReasonWrongItem      ReturnReason = "WRONG_ITEM"
	ReturnReasonSizeIssue      ReturnReason = "SIZE_ISSUE"
	ReturnReasonQualityIssue   ReturnReason = "QUALITY_ISSUE"
	ReturnReasonNotAsDescribed ReturnReason = "NOT_AS_DESCRIBED"
	ReturnReasonChangeOfMind   ReturnReason = "CHANGE_OF_MIND"
	ReturnReasonOther          ReturnReason = "OTHER"
)

var validReturnReasons = []ReturnReason{
	ReturnReasonDefective,
	ReturnReasonWrongItem,
	ReturnReasonSizeIssue,
	ReturnReasonQualityIssue,
	ReturnReasonNotAsDescribed,
	ReturnReasonChangeOfMind,
	ReturnReasonOther,
}

// String implements fmt.Stringer.
func (r ReturnReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r ReturnReason) IsValid() bool {
	for _, candidate := range validReturnReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnReason converts raw input into a ReturnReason.
func ParseReturnReason(value string) (ReturnReason, error) {
	for _, candidate := range validReturnReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return reason %q", value)
}

// ItemCondition describes the state of a returned item.
type ItemCondition string

const (
	ItemConditionUnopened  ItemCondition = "UNOPENED"
	ItemConditionLikeNew   ItemCondition = "LIKE_NEW"
	ItemConditionUsed      ItemCondition = "USED"
	ItemConditionDamaged   ItemCondition = "DAMAGED"
	ItemConditionDefective ItemCondition = "DEFECTIVE"
)

var validItemConditions = []ItemCondition{
	ItemConditionUnopened,
	ItemConditionLikeNew,
	ItemConditionUsed,
	ItemConditionDamaged,
	ItemConditionDefective,
}

// String implements fmt.Stringer.
func (c ItemCondition) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
