package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ProductInventory is one append-only row per stock mutation.
type ProductInventory struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID      *uuid.UUID                `gorm:"column:variant_id;type:uuid"`
	ChangeType     enums.InventoryChangeType `gorm:"column:change_type;type:text;not null"`
	PreviousStock  int                       `gorm:"column:previous_stock;not null"`
	NewStock       int                       `gorm:"column:new_stock;not null"`
	ChangeQuantity int                       `gorm:"column:change_quantity;not null"`
	Reason         string                    `gorm:"column:reason;not null"`
	ReferenceID    *uuid.UUID                `gorm:"column:reference_id;type:uuid"`
	Notes          *string                   `gorm:"column:notes"`
	UserID         *uuid.UUID                `gorm:"column:user_id;type:uuid"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (ProductInventory) TableName() string {
	return "product_inventory"
}

func (p *ProductInventory) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
