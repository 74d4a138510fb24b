package coupons

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// NormalizeCode upper-cases and trims a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CheckEligibility applies the coupon rules against an order amount that already
// includes product discounts. A nil coupon means the code did not resolve.
func CheckEligibility(coupon *models.Coupon, amount decimal.Decimal, now time.Time) error {
	if coupon == nil {
		return invalid("Invalid coupon code", "not_found")
	}
	if !coupon.IsActive {
		return invalid("Coupon is not active", "inactive")
	}
	if now.Before(coupon.ValidFrom) {
		return invalid("Coupon is not yet valid", "not_yet_valid")
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return invalid("Coupon has expired", "expired")
	}
	if coupon.MaxUses != nil && coupon.UsedCount >= *coupon.MaxUses {
		return invalid("Coupon usage limit reached", "limit_reached")
	}
	if coupon.MinOrderAmount != nil && amount.LessThan(*coupon.MinOrderAmount) {
		return pkgerrors.New(pkgerrors.CodeCouponInvalid, fmt.Sprintf("Minimum order amount required: $%s", coupon.MinOrderAmount.StringFixed(2))).
			WithDetails(map[string]any{"reason": "minimum_not_met", "minOrderAmount": coupon.MinOrderAmount.StringFixed(2)})
	}
	return nil
}

// Discount computes the coupon discount for amount, rounded to cents. Fixed
// discounts never exceed the amount they apply to.
func Discount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	if coupon == nil || !amount.IsPositive() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		discount = amount.Mul(coupon.DiscountValue).Div(hundred)
	default:
		discount = coupon.DiscountValue
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount.Round(2)
}

func invalid(message, reason string) error {
	return pkgerrors.New(pkgerrors.CodeCouponInvalid, message).WithDetails(map[string]any{"reason": reason})
}
