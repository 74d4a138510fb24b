package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CreateOrderInput is the checkout payload.
type CreateOrderInput struct {
	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingState   *string
	ShippingZip     *string
	ShippingCountry string
	CouponCode      string
	Notes           *string
	Items           []pricing.Line
}

// ListFilter narrows order listings. UserID scopes the listing to one customer.
type ListFilter struct {
	UserID        *uuid.UUID
	Status        *enums.OrderStatus
	CustomerEmail string
	SearchTerm    string
	From          *time.Time
	To            *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Limit         int
	After         *time.Time
	AfterID       *uuid.UUID
}

// ListParams are the caller-facing listing options.
type ListParams struct {
	Status        *enums.OrderStatus
	CustomerEmail string
	SearchTerm    string
	From          *time.Time
	To            *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	pagination.Params
}

// Statistics aggregates order counts and revenue.
type Statistics struct {
	TotalOrders      int64           `json:"totalOrders"`
	PendingOrders    int64           `json:"pendingOrders"`
	ProcessingOrders int64           `json:"processingOrders"`
	PaidOrders       int64           `json:"paidOrders"`
	ShippedOrders    int64           `json:"shippedOrders"`
	DeliveredOrders  int64           `json:"deliveredOrders"`
	CancelledOrders  int64           `json:"cancelledOrders"`
	RefundedOrders   int64           `json:"refundedOrders"`
	TotalRevenue     decimal.Decimal `json:"totalRevenue"`
}

// OrderList is one page of orders, newest first.
type OrderList = pagination.Page[models.Order]
