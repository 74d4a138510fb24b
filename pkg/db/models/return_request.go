package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ReturnRequest is the single return a user may open against one order.
type ReturnRequest struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex:return_requests_order_user_key"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:return_requests_order_user_key"`
	Status       enums.ReturnStatus `gorm:"column:status;type:text;not null"`
	Reason       enums.ReturnReason `gorm:"column:reason;type:text;not null"`
	Description  *string            `gorm:"column:description"`
	RefundAmount decimal.Decimal    `gorm:"column:refund_amount;type:numeric(12,2);not null"`
	AdminNotes   *string            `gorm:"column:admin_notes"`
	ApprovedAt   *time.Time         `gorm:"column:approved_at"`
	ApprovedBy   *uuid.UUID         `gorm:"column:approved_by;type:uuid"`
	ProcessedAt  *time.Time         `gorm:"column:processed_at"`
	Items        []ReturnItem       `gorm:"foreignKey:ReturnRequestID"`
	Order        *Order             `gorm:"foreignKey:OrderID"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *ReturnRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// ReturnItem snapshots the condition and computed refund of one returned line.
type ReturnItem struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ReturnRequestID uuid.UUID           `gorm:"column:return_request_id;type:uuid;not null;index"`
	OrderItemID     uuid.UUID           `gorm:"column:order_item_id;type:uuid;not null"`
	ProductID       uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	VariantID       *uuid.UUID          `gorm:"column:variant_id;type:uuid"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	Condition       enums.ItemCondition `gorm:"column:condition;type:text;not null"`
	RefundAmount    decimal.Decimal     `gorm:"column:refund_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (i *ReturnItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
