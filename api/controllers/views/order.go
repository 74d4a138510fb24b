// Package views holds the JSON shapes the API renders for domain models.
package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type Order struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"orderNumber"`
	UserID          uuid.UUID         `json:"userId"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	ShippingName    string            `json:"shippingName"`
	ShippingPhone   string            `json:"shippingPhone"`
	ShippingAddress string            `json:"shippingAddress"`
	ShippingCity    string            `json:"shippingCity"`
	ShippingState   *string           `json:"shippingState,omitempty"`
	ShippingZip     *string           `json:"shippingZip,omitempty"`
	ShippingCountry string            `json:"shippingCountry"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	DiscountAmount  decimal.Decimal   `json:"discountAmount"`
	TotalPrice      decimal.Decimal   `json:"totalPrice"`
	Currency        string            `json:"currency"`
	Status          enums.OrderStatus `json:"status"`
	CouponID        *uuid.UUID        `json:"couponId,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	OrderDate       time.Time         `json:"orderDate"`
	Items           []OrderItem       `json:"items"`
	Tracking        []OrderTracking   `json:"tracking,omitempty"`
	Payments        []Payment         `json:"payments,omitempty"`
	Invoices        []Invoice         `json:"invoices,omitempty"`
	Shipping        *Shipping         `json:"shipping,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

type OrderItem struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"productId"`
	VariantID     *uuid.UUID      `json:"variantId,omitempty"`
	ProductName   string          `json:"productName"`
	ProductSlug   string          `json:"productSlug"`
	VariantInfo   *string         `json:"variantInfo,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Quantity      int             `json:"quantity"`
	Discount      decimal.Decimal `json:"discount"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

type OrderTracking struct {
	Status    enums.OrderStatus `json:"status"`
	Notes     string            `json:"notes"`
	CreatedBy *uuid.UUID        `json:"createdBy,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func NewOrder(order *models.Order) Order {
	if order == nil {
		return Order{}
	}
	out := Order{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		CustomerName:    order.CustomerName,
		CustomerEmail:   order.CustomerEmail,
		ShippingName:    order.ShippingName,
		ShippingPhone:   order.ShippingPhone,
		ShippingAddress: order.ShippingAddress,
		ShippingCity:    order.ShippingCity,
		ShippingState:   order.ShippingState,
		ShippingZip:     order.ShippingZip,
		ShippingCountry: order.ShippingCountry,
		Subtotal:        order.Subtotal,
		DiscountAmount:  order.DiscountAmount,
		TotalPrice:      order.TotalPrice,
		Currency:        order.Currency,
		Status:          order.Status,
		CouponID:        order.CouponID,
		Notes:           order.Notes,
		OrderDate:       order.OrderDate,
		Items:           make([]OrderItem, 0, len(order.Items)),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, OrderItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			ProductName:   item.ProductName,
			ProductSlug:   item.ProductSlug,
			VariantInfo:   item.VariantInfo,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			Quantity:      item.Quantity,
			Discount:      item.Discount,
			TotalPrice:    item.TotalPrice,
		})
	}
	for _, entry := range order.Tracking {
		out.Tracking = append(out.Tracking, OrderTracking{
			Status:    entry.Status,
			Notes:     entry.Notes,
			CreatedBy: entry.CreatedBy,
			CreatedAt: entry.CreatedAt,
		})
	}
	for i := range order.Payments {
		out.Payments = append(out.Payments, NewPayment(&order.Payments[i]))
	}
	for _, invoice := range order.Invoices {
		out.Invoices = append(out.Invoices, NewInvoice(invoice))
	}
	if order.Shipping != nil {
		shipping := NewShipping(order.Shipping)
		out.Shipping = &shipping
	}
	return out
}

func NewOrderPage(page *pagination.Page[models.Order]) pagination.Page[Order] {
	return mapPage(page, func(o *models.Order) Order { return NewOrder(o) })
}

func mapPage[M, V any](page *pagination.Page[M], fn func(*M) V) pagination.Page[V] {
	out := pagination.Page[V]{Items: []V{}}
	if page == nil {
		return out
	}
	out.NextCursor = page.NextCursor
	for i := range page.Items {
		out.Items = append(out.Items, fn(&page.Items[i]))
	}
	return out
}
