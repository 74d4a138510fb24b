package inventory

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/controllers/views"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalinventory "github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type Service interface {
	Adjust(ctx context.Context, adj internalinventory.Adjustment) (*models.ProductInventory, error)
	History(ctx context.Context, productID uuid.UUID, params pagination.Params) (*pagination.Page[models.ProductInventory], error)
}

type adjustRequest struct {
	ProductID uuid.UUID  `json:"productId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	NewStock  *int       `json:"newStock,omitempty" validate:"omitempty,gte=0"`
	Delta     *int       `json:"delta,omitempty"`
	Reason    string     `json:"reason,omitempty" validate:"omitempty,max=255"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// Adjust applies a manual stock correction and logs it as ADJUSTMENT.
func Adjust(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Adjust(r.Context(), internalinventory.Adjustment{
			ProductID: payload.ProductID,
			VariantID: payload.VariantID,
			NewStock:  payload.NewStock,
			Delta:     payload.Delta,
			Reason:    payload.Reason,
			Notes:     payload.Notes,
			UserID:    actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, views.NewInventoryLog(entry))
	}
}

func History(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.History(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewInventoryPage(page))
	}
}
