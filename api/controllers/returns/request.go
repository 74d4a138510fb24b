package returns

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	internalreturns "github.com/angelmondragon/storefront-backend/internal/returns"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type createReturnRequest struct {
	OrderID     uuid.UUID           `json:"orderId" validate:"required"`
	Reason      string              `json:"reason" validate:"required"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Items       []returnItemRequest `json:"items" validate:"required,min=1,dive"`
}

type returnItemRequest struct {
	OrderItemID uuid.UUID `json:"orderItemId" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gte=1"`
	Condition   string    `json:"condition" validate:"required"`
}

type updateReturnRequest struct {
	Status       string           `json:"status" validate:"required"`
	AdminNotes   *string          `json:"adminNotes,omitempty" validate:"omitempty,max=2000"`
	RefundAmount *decimal.Decimal `json:"refundAmount,omitempty" validate:"omitempty,gte=0"`
}

func (req createReturnRequest) toInput() (internalreturns.CreateReturnInput, error) {
	reason, err := enums.ParseReturnReason(normalizeEnum(req.Reason))
	if err != nil {
		return internalreturns.CreateReturnInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return reason")
	}
	items := make([]internalreturns.ReturnItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		condition, err := enums.ParseItemCondition(normalizeEnum(item.Condition))
		if err != nil {
			return internalreturns.CreateReturnInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item condition")
		}
		items = append(items, internalreturns.ReturnItemInput{
			OrderItemID: item.OrderItemID,
			Quantity:    item.Quantity,
			Condition:   condition,
		})
	}
	return internalreturns.CreateReturnInput{
		OrderID:     req.OrderID,
		Reason:      reason,
		Description: req.Description,
		Items:       items,
	}, nil
}

func normalizeEnum(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
