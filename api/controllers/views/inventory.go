package views

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// InventoryLog is one stock movement.
type InventoryLog struct {
	ID             uuid.UUID                 `json:"id"`
	ProductID      uuid.UUID                 `json:"productId"`
	VariantID      *uuid.UUID                `json:"variantId,omitempty"`
	ChangeType     enums.InventoryChangeType `json:"changeType"`
	PreviousStock  int                       `json:"previousStock"`
	NewStock       int                       `json:"newStock"`
	ChangeQuantity int                       `json:"changeQuantity"`
	Reason         string                    `json:"reason"`
	ReferenceID    *uuid.UUID                `json:"referenceId,omitempty"`
	Notes          *string                   `json:"notes,omitempty"`
	UserID         *uuid.UUID                `json:"userId,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
}

func NewInventoryLog(row *models.ProductInventory) InventoryLog {
	if row == nil {
		return InventoryLog{}
	}
	return InventoryLog{
		ID:             row.ID,
		ProductID:      row.ProductID,
		VariantID:      row.VariantID,
		ChangeType:     row.ChangeType,
		PreviousStock:  row.PreviousStock,
		NewStock:       row.NewStock,
		ChangeQuantity: row.ChangeQuantity,
		Reason:         row.Reason,
		ReferenceID:    row.ReferenceID,
		Notes:          row.Notes,
		UserID:         row.UserID,
		CreatedAt:      row.CreatedAt,
	}
}

func NewInventoryPage(page *pagination.Page[models.ProductInventory]) pagination.Page[InventoryLog] {
	return mapPage(page, func(row *models.ProductInventory) InventoryLog { return NewInventoryLog(row) })
}
