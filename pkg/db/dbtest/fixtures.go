package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// MustProduct inserts an active product.
func MustProduct(t testing.TB, conn *gorm.DB, price string, discountPercent string, stock int) *models.Product {
	t.Helper()
	id := uuid.New()
	product := &models.Product{
		ID:              id,
		Name:            "Product " + id.String()[:8],
		Slug:            "product-" + id.String(),
		Price:           decimal.RequireFromString(price),
		DiscountPercent: decimal.RequireFromString(discountPercent),
		Stock:           stock,
		IsActive:        true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

// MustVariant inserts an active variant. An empty price inherits the product price.
func MustVariant(t testing.TB, conn *gorm.DB, productID uuid.UUID, price string, stock int) *models.ProductVariant {
	t.Helper()
	variant := &models.ProductVariant{
		ProductID: productID,
		Name:      "Size",
		Value:     "M",
		Stock:     stock,
		IsActive:  true,
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		variant.Price = &p
	}
	if err := conn.Create(variant).Error; err != nil {
		t.Fatalf("create variant: %v", err)
	}
	return variant
}

// MustCoupon inserts an active coupon valid since yesterday.
func MustCoupon(t testing.TB, conn *gorm.DB, code string, discountType enums.DiscountType, value string, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: decimal.RequireFromString(value),
		ValidFrom:     time.Now().UTC().Add(-24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := conn.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return coupon
}

// ReloadProduct fetches the current product row.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) *models.Product {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}
