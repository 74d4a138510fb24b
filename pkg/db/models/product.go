package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable catalog entry. Stock is mutated only by the inventory manager.
type Product struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name            string           `gorm:"column:name;not null"`
	Slug            string           `gorm:"column:slug;not null;uniqueIndex"`
	Price           decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPercent decimal.Decimal  `gorm:"column:discount_percent;type:numeric(5,2);not null"`
	Stock           int              `gorm:"column:stock;not null"`
	IsActive        bool             `gorm:"column:is_active;not null"`
	Variants        []ProductVariant `gorm:"foreignKey:ProductID"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant is a purchasable option of a product with its own stock counter.
type ProductVariant struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	Name      string           `gorm:"column:name;not null"`
	Value     string           `gorm:"column:value;not null"`
	Price     *decimal.Decimal `gorm:"column:price;type:numeric(12,2)"`
	Stock     int              `gorm:"column:stock;not null"`
	IsActive  bool             `gorm:"column:is_active;not null"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Label renders the variant as "name: value" for order snapshots.
func (v ProductVariant) Label() string {
	return v.Name + ": " + v.Value
}
