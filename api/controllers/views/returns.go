package views

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type ReturnRequest struct {
	ID           uuid.UUID          `json:"id"`
	OrderID      uuid.UUID          `json:"orderId"`
	OrderNumber  string             `json:"orderNumber,omitempty"`
	UserID       uuid.UUID          `json:"userId"`
	Status       enums.ReturnStatus `json:"status"`
	Reason       enums.ReturnReason `json:"reason"`
	Description  *string            `json:"description,omitempty"`
	RefundAmount decimal.Decimal    `json:"refundAmount"`
	AdminNotes   *string            `json:"adminNotes,omitempty"`
	ApprovedAt   *time.Time         `json:"approvedAt,omitempty"`
	ApprovedBy   *uuid.UUID         `json:"approvedBy,omitempty"`
	ProcessedAt  *time.Time         `json:"processedAt,omitempty"`
	Items        []ReturnItem       `json:"items"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type ReturnItem struct {
	ID           uuid.UUID           `json:"id"`
	OrderItemID  uuid.UUID           `json:"orderItemId"`
	ProductID    uuid.UUID           `json:"productId"`
	VariantID    *uuid.UUID          `json:"variantId,omitempty"`
	Quantity     int                 `json:"quantity"`
	Condition    enums.ItemCondition `json:"condition"`
	RefundAmount decimal.Decimal     `json:"refundAmount"`
}

func NewReturnRequest(req *models.ReturnRequest) ReturnRequest {
	if req == nil {
		return ReturnRequest{}
	}
	out := ReturnRequest{
		ID:           req.ID,
		OrderID:      req.OrderID,
		UserID:       req.UserID,
		Status:       req.Status,
		Reason:       req.Reason,
		Description:  req.Description,
		RefundAmount: req.RefundAmount,
		AdminNotes:   req.AdminNotes,
		ApprovedAt:   req.ApprovedAt,
		ApprovedBy:   req.ApprovedBy,
		ProcessedAt:  req.ProcessedAt,
		Items:        make([]ReturnItem, 0, len(req.Items)),
		CreatedAt:    req.CreatedAt,
		UpdatedAt:    req.UpdatedAt,
	}
	if req.Order != nil {
		out.OrderNumber = req.Order.OrderNumber
	}
	for _, item := range req.Items {
		out.Items = append(out.Items, ReturnItem{
			ID:           item.ID,
			OrderItemID:  item.OrderItemID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			Quantity:     item.Quantity,
			Condition:    item.Condition,
			RefundAmount: item.RefundAmount,
		})
	}
	return out
}

func NewReturnPage(page *pagination.Page[models.ReturnRequest]) pagination.Page[ReturnRequest] {
	return mapPage(page, func(r *models.ReturnRequest) ReturnRequest { return NewReturnRequest(r) })
}
