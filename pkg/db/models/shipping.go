package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Shipping records the single shipment of an order.
type Shipping struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex:shipping_order_id_key"`
	Carrier        string               `gorm:"column:carrier;not null"`
	TrackingNumber string               `gorm:"column:tracking_number;not null;uniqueIndex:shipping_tracking_number_key"`
	Method         enums.ShippingMethod `gorm:"column:method;type:text;not null"`
	Cost           decimal.Decimal      `gorm:"column:cost;type:numeric(12,2);not null"`
	EstimatedDays  *int                 `gorm:"column:estimated_days"`
	Notes          *string              `gorm:"column:notes"`
	ShippedAt      time.Time            `gorm:"column:shipped_at;not null"`
	DeliveredAt    *time.Time           `gorm:"column:delivered_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shipping) TableName() string {
	return "shipping"
}

func (s *Shipping) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// EstimatedDelivery returns ShippedAt plus EstimatedDays when known.
func (s Shipping) EstimatedDelivery() *time.Time {
	if s.EstimatedDays == nil {
		return nil
	}
	eta := s.ShippedAt.AddDate(0, 0, *s.EstimatedDays)
	return &eta
}
