package payments

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/controllers/views"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalpayments "github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Service is the payment surface the handlers drive.
type Service interface {
	Initiate(ctx context.Context, actor auth.Actor, orderID uuid.UUID, input internalpayments.InitiateInput) (*internalpayments.InitiateResult, error)
	ListForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.Payment, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input internalpayments.UpdateStatusInput) (*models.Payment, error)
	CreateManual(ctx context.Context, actor auth.Actor, input internalpayments.CreateManualInput) (*models.Payment, error)
	Refund(ctx context.Context, actor auth.Actor, paymentID uuid.UUID, input internalpayments.RefundInput) (*models.Payment, error)
}

// Initiate starts collecting payment for an order. Stripe is the default gateway.
func Initiate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiateRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := internalpayments.InitiateInput{
			Gateway:  enums.PaymentGatewayStripe,
			SourceID: strings.TrimSpace(payload.SourceID),
		}
		if strings.TrimSpace(payload.Gateway) != "" {
			if input.Gateway, err = parseGateway(payload.Gateway); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if payload.Method != nil {
			method, err := parseMethod(*payload.Method)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Method = &method
		}

		result, err := svc.Initiate(r.Context(), actor, orderID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, views.NewInitiateResult(result))
	}
}

func ListForOrder(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListForOrder(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewPayments(rows))
	}
}

// CreateManual records a payment collected outside the gateways.
func CreateManual(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		gateway, err := parseGateway(payload.Gateway)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalpayments.CreateManualInput{
			OrderID:       payload.OrderID,
			Gateway:       gateway,
			Amount:        payload.Amount,
			Currency:      strings.ToUpper(strings.TrimSpace(payload.Currency)),
			TransactionID: payload.TransactionID,
		}
		if strings.TrimSpace(payload.Method) != "" {
			if input.Method, err = parseMethod(payload.Method); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if strings.TrimSpace(payload.Status) != "" {
			if input.Status, err = parseStatus(payload.Status); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		payment, err := svc.CreateManual(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, views.NewPayment(payment))
	}
}

// UpdateStatus is the admin override. COMPLETED runs the normal completion path.
func UpdateStatus(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.UpdateStatus(r.Context(), actor, paymentID, internalpayments.UpdateStatusInput{
			Status:          status,
			TransactionID:   payload.TransactionID,
			FailureReason:   payload.FailureReason,
			GatewayResponse: payload.GatewayResponse,
			RefundedAmount:  payload.RefundedAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewPayment(payment))
	}
}

// Refund refunds part or all of a captured payment.
func Refund(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Refund(r.Context(), actor, paymentID, internalpayments.RefundInput{
			Amount: payload.Amount,
			Reason: strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views.NewPayment(payment))
	}
}

func parseGateway(raw string) (enums.PaymentGateway, error) {
	gateway, err := enums.ParsePaymentGateway(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment gateway")
	}
	return gateway, nil
}

func parseMethod(raw string) (enums.PaymentMethod, error) {
	method, err := enums.ParsePaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
	}
	return method, nil
}

func parseStatus(raw string) (enums.PaymentStatus, error) {
	status, err := enums.ParsePaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
	}
	return status, nil
}
