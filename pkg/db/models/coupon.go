package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Coupon is a named discount rule. UsedCount only ever grows.
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;not null;uniqueIndex:coupons_code_key"`
	Description    *string            `gorm:"column:description"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinOrderAmount *decimal.Decimal   `gorm:"column:min_order_amount;type:numeric(12,2)"`
	MaxUses        *int               `gorm:"column:max_uses"`
	UsedCount      int                `gorm:"column:used_count;not null;default:0"`
	ValidFrom      time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil     *time.Time         `gorm:"column:valid_until"`
	IsActive       bool               `gorm:"column:is_active;not null"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
