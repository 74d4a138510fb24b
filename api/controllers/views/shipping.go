package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type Shipping struct {
	ID                uuid.UUID            `json:"id"`
	OrderID           uuid.UUID            `json:"orderId"`
	Carrier           string               `json:"carrier"`
	TrackingNumber    string               `json:"trackingNumber"`
	Method            enums.ShippingMethod `json:"method"`
	Cost              decimal.Decimal      `json:"cost"`
	EstimatedDays     *int                 `json:"estimatedDays,omitempty"`
	EstimatedDelivery *time.Time           `json:"estimatedDelivery,omitempty"`
	Notes             *string              `json:"notes,omitempty"`
	ShippedAt         time.Time            `json:"shippedAt"`
	DeliveredAt       *time.Time           `json:"deliveredAt,omitempty"`
}

type Tracking struct {
	Shipping    Shipping          `json:"shipping"`
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	OrderStatus enums.OrderStatus `json:"orderStatus"`
}

func NewShipping(s *models.Shipping) Shipping {
	if s == nil {
		return Shipping{}
	}
	return Shipping{
		ID:                s.ID,
		OrderID:           s.OrderID,
		Carrier:           s.Carrier,
		TrackingNumber:    s.TrackingNumber,
		Method:            s.Method,
		Cost:              s.Cost,
		EstimatedDays:     s.EstimatedDays,
		EstimatedDelivery: s.EstimatedDelivery(),
		Notes:             s.Notes,
		ShippedAt:         s.ShippedAt,
		DeliveredAt:       s.DeliveredAt,
	}
}

func NewTracking(t *shipping.Tracking) Tracking {
	if t == nil {
		return Tracking{}
	}
	return Tracking{
		Shipping:    NewShipping(&t.Shipping),
		OrderID:     t.OrderID,
		OrderNumber: t.OrderNumber,
		OrderStatus: t.OrderStatus,
	}
}
