package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AddShippingInput records the shipment of a paid order.
type AddShippingInput struct {
	Carrier        string
	TrackingNumber string
	Method         enums.ShippingMethod
	Cost           decimal.Decimal
	EstimatedDays  *int
	Notes          *string
	ShippedAt      *time.Time
}

// UpdateShippingInput patches a shipment. A DeliveredAt marks the order delivered.
type UpdateShippingInput struct {
	Carrier        *string
	TrackingNumber *string
	EstimatedDays  *int
	Notes          *string
	DeliveredAt    *time.Time
}

// Tracking is the public view of a shipment looked up by tracking number.
type Tracking struct {
	Shipping          models.Shipping   `json:"shipping"`
	OrderID           uuid.UUID         `json:"orderId"`
	OrderNumber       string            `json:"orderNumber"`
	OrderStatus       enums.OrderStatus `json:"orderStatus"`
	EstimatedDelivery *time.Time        `json:"estimatedDelivery,omitempty"`
}
