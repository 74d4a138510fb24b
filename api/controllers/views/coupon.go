package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type Coupon struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Description    *string            `json:"description,omitempty"`
	DiscountType   enums.DiscountType `json:"discountType"`
	DiscountValue  decimal.Decimal    `json:"discountValue"`
	MinOrderAmount *decimal.Decimal   `json:"minOrderAmount,omitempty"`
	MaxUses        *int               `json:"maxUses,omitempty"`
	UsedCount      int                `json:"usedCount"`
	ValidFrom      time.Time          `json:"validFrom"`
	ValidUntil     *time.Time         `json:"validUntil,omitempty"`
	IsActive       bool               `json:"isActive"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func NewCoupon(c *models.Coupon) Coupon {
	if c == nil {
		return Coupon{}
	}
	return Coupon{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   c.DiscountType,
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		MaxUses:        c.MaxUses,
		UsedCount:      c.UsedCount,
		ValidFrom:      c.ValidFrom,
		ValidUntil:     c.ValidUntil,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func NewCouponPage(page *pagination.Page[models.Coupon]) pagination.Page[Coupon] {
	return mapPage(page, func(c *models.Coupon) Coupon { return NewCoupon(c) })
}
