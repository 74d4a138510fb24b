package coupons

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	internalcoupons "github.com/angelmondragon/storefront-backend/internal/coupons"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type validateRequest struct {
	Code        string          `json:"code" validate:"required,max=50"`
	OrderAmount decimal.Decimal `json:"orderAmount" validate:"gte=0"`
}

type createCouponRequest struct {
	Code           string           `json:"code" validate:"required,max=50"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountType   string           `json:"discountType" validate:"required"`
	DiscountValue  decimal.Decimal  `json:"discountValue" validate:"gt=0"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty" validate:"omitempty,gte=0"`
	MaxUses        *int             `json:"maxUses,omitempty" validate:"omitempty,gte=1"`
	ValidFrom      *time.Time       `json:"validFrom,omitempty"`
	ValidUntil     *time.Time       `json:"validUntil,omitempty"`
	IsActive       *bool            `json:"isActive,omitempty"`
}

type updateCouponRequest struct {
	Code           *string          `json:"code,omitempty" validate:"omitempty,max=50"`
	Description    *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	DiscountType   *string          `json:"discountType,omitempty"`
	DiscountValue  *decimal.Decimal `json:"discountValue,omitempty" validate:"omitempty,gt=0"`
	MinOrderAmount *decimal.Decimal `json:"minOrderAmount,omitempty" validate:"omitempty,gte=0"`
	MaxUses        *int             `json:"maxUses,omitempty" validate:"omitempty,gte=1"`
	ValidFrom      *time.Time       `json:"validFrom,omitempty"`
	ValidUntil     *time.Time       `json:"validUntil,omitempty"`
	IsActive       *bool            `json:"isActive,omitempty"`
}

func (req createCouponRequest) toInput() (internalcoupons.CreateInput, error) {
	discountType, err := parseDiscountType(req.DiscountType)
	if err != nil {
		return internalcoupons.CreateInput{}, err
	}
	return internalcoupons.CreateInput{
		Code:           req.Code,
		Description:    req.Description,
		DiscountType:   discountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		IsActive:       req.IsActive,
	}, nil
}

func (req updateCouponRequest) toInput() (internalcoupons.UpdateInput, error) {
	input := internalcoupons.UpdateInput{
		Code:           req.Code,
		Description:    req.Description,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		ValidFrom:      req.ValidFrom,
		ValidUntil:     req.ValidUntil,
		IsActive:       req.IsActive,
	}
	if req.DiscountType != nil {
		discountType, err := parseDiscountType(*req.DiscountType)
		if err != nil {
			return input, err
		}
		input.DiscountType = &discountType
	}
	return input, nil
}

func parseDiscountType(raw string) (enums.DiscountType, error) {
	discountType, err := enums.ParseDiscountType(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type")
	}
	return discountType, nil
}
