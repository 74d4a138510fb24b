package orders

import (
	"strings"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
)

type createOrderRequest struct {
	ShippingName    string             `json:"shippingName" validate:"required,max=200"`
	ShippingPhone   string             `json:"shippingPhone" validate:"required,max=50"`
	ShippingAddress string             `json:"shippingAddress" validate:"required,max=500"`
	ShippingCity    string             `json:"shippingCity" validate:"required,max=100"`
	ShippingState   *string            `json:"shippingState,omitempty" validate:"omitempty,max=100"`
	ShippingZip     *string            `json:"shippingZip,omitempty" validate:"omitempty,max=20"`
	ShippingCountry string             `json:"shippingCountry,omitempty" validate:"omitempty,max=100"`
	CouponCode      string             `json:"couponCode,omitempty" validate:"omitempty,max=50"`
	Notes           *string            `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Items           []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type orderItemRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Quantity  int        `json:"quantity" validate:"gte=1"`
}

type updateStatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (req createOrderRequest) toInput() internalorders.CreateOrderInput {
	lines := make([]pricing.Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return internalorders.CreateOrderInput{
		ShippingName:    req.ShippingName,
		ShippingPhone:   req.ShippingPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingZip:     req.ShippingZip,
		ShippingCountry: req.ShippingCountry,
		CouponCode:      strings.TrimSpace(req.CouponCode),
		Notes:           req.Notes,
		Items:           lines,
	}
}
