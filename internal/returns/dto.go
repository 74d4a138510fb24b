package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CreateReturnInput opens a return against a delivered order.
type CreateReturnInput struct {
	OrderID     uuid.UUID
	Reason      enums.ReturnReason
	Description *string
	Items       []ReturnItemInput
}

// ReturnItemInput names one purchased line and how much of it comes back.
type ReturnItemInput struct {
	OrderItemID uuid.UUID
	Quantity    int
	Condition   enums.ItemCondition
}

// UpdateReturnInput is the operator review payload. RefundAmount overrides the
// computed amount when set.
type UpdateReturnInput struct {
	Status       enums.ReturnStatus
	AdminNotes   *string
	RefundAmount *decimal.Decimal
}

// ListFilter narrows return listings. UserID scopes the listing to one customer.
type ListFilter struct {
	UserID  *uuid.UUID
	OrderID *uuid.UUID
	Status  *enums.ReturnStatus
	Limit   int
	After   *time.Time
	AfterID *uuid.UUID
}

type ListParams struct {
	Status  *enums.ReturnStatus
	OrderID *uuid.UUID
	pagination.Params
}

// ReturnList is one page of return requests, newest first.
type ReturnList = pagination.Page[models.ReturnRequest]
