package shipping

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/controllers/views"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalshipping "github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type Service interface {
	Add(ctx context.Context, orderID uuid.UUID, input internalshipping.AddShippingInput, actor auth.Actor) (*models.Shipping, error)
	Update(ctx context.Context, orderID uuid.UUID, input internalshipping.UpdateShippingInput, actor auth.Actor) (*models.Shipping, error)
	Track(ctx context.Context, trackingNumber string) (*internalshipping.Tracking, error)
}

type addShippingRequest struct {
	Carrier        string          `json:"carrier" validate:"required,max=100"`
	TrackingNumber string          `json:"trackingNumber" validate:"required,max=100"`
	Method         string          `json:"method,omitempty"`
	Cost           decimal.Decimal `json:"cost" validate:"gte=0"`
	EstimatedDays  *int            `json:"estimatedDays,omitempty" validate:"omitempty,gte=0"`
	Notes          *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
	ShippedAt      *time.Time      `json:"shippedAt,omitempty"`
}

type updateShippingRequest struct {
	Carrier        *string    `json:"carrier,omitempty" validate:"omitempty,max=100"`
	TrackingNumber *string    `json:"trackingNumber,omitempty" validate:"omitempty,max=100"`
	EstimatedDays  *int       `json:"estimatedDays,omitempty" validate:"omitempty,gte=0"`
	Notes          *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
	DeliveredAt    *time.Time `json:"deliveredAt,omitempty"`
}

// Track is public: anyone holding a tracking number may look it up.
func Track(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		tracking, err := svc.Track(r.Context(), chi.URLParam(r, "trackingNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewTracking(tracking))
	}
}

// Add records the shipment for an order and marks it SHIPPED.
func Add(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalshipping.AddShippingInput{
			Carrier:        payload.Carrier,
			TrackingNumber: payload.TrackingNumber,
			Cost:           payload.Cost,
			EstimatedDays:  payload.EstimatedDays,
			Notes:          payload.Notes,
			ShippedAt:      payload.ShippedAt,
		}
		if raw := strings.TrimSpace(payload.Method); raw != "" {
			method, err := enums.ParseShippingMethod(strings.ToUpper(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping method"))
				return
			}
			input.Method = method
		}

		shipment, err := svc.Add(r.Context(), orderID, input, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, views.NewShipping(shipment))
	}
}

func Update(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Update(r.Context(), orderID, internalshipping.UpdateShippingInput{
			Carrier:        payload.Carrier,
			TrackingNumber: payload.TrackingNumber,
			EstimatedDays:  payload.EstimatedDays,
			Notes:          payload.Notes,
			DeliveredAt:    payload.DeliveredAt,
		}, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewShipping(shipment))
	}
}
