package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a placed purchase. Orders are never deleted; cancellation is a status.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string            `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	UserID            uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	CustomerName      string            `gorm:"column:customer_name;not null"`
	CustomerEmail     string            `gorm:"column:customer_email;not null"`
	ShippingName      string            `gorm:"column:shipping_name;not null"`
	ShippingPhone     string            `gorm:"column:shipping_phone;not null"`
	ShippingAddress   string            `gorm:"column:shipping_address;not null"`
	ShippingCity      string            `gorm:"column:shipping_city;not null"`
	ShippingState     *string           `gorm:"column:shipping_state"`
	ShippingZip       *string           `gorm:"column:shipping_zip"`
	ShippingCountry   string            `gorm:"column:shipping_country;not null"`
	Subtotal          decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount    decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2);not null"`
	TotalPrice        decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Currency          string            `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;index"`
	CouponID          *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	CheckoutSessionID *string           `gorm:"column:checkout_session_id;index"`
	Notes             *string           `gorm:"column:notes"`
	OrderDate         time.Time         `gorm:"column:order_date;not null"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID"`
	Payments          []Payment         `gorm:"foreignKey:OrderID"`
	Tracking          []OrderTracking   `gorm:"foreignKey:OrderID"`
	Invoices          []Invoice         `gorm:"foreignKey:OrderID"`
	Shipping          *Shipping         `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem is an immutable snapshot of a purchased line.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID     *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ProductName   string          `gorm:"column:product_name;not null"`
	ProductSlug   string          `gorm:"column:product_slug;not null"`
	VariantInfo   *string         `gorm:"column:variant_info"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	OriginalPrice decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	Discount      decimal.Decimal `gorm:"column:discount;type:numeric(12,2);not null"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderTracking is the append-only status history of an order.
type OrderTracking struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Notes     string            `gorm:"column:notes;not null"`
	CreatedBy *uuid.UUID        `gorm:"column:created_by;type:uuid"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (OrderTracking) TableName() string {
	return "order_tracking"
}

func (t *OrderTracking) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
