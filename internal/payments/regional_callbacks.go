package payments

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/sslcommerz"
)

// RegionalValidator confirms callbacks against the gateway: a val_id through the
// validation API, a tran_id through the transaction query API.
type RegionalValidator interface {
	Validate(ctx context.Context, valID string) (*sslcommerz.Validation, error)
	QueryTransaction(ctx context.Context, tranID string) (*sslcommerz.TransactionQuery, error)
}

// EventApplier is the reconciler entry point.
type EventApplier interface {
	Apply(ctx context.Context, event reconciler.Event) (reconciler.Outcome, error)
}

type RegionalCallbackParams struct {
	Validator RegionalValidator
	Applier   EventApplier
	Metrics   *metrics.PaymentMetrics
	Logger    *logger.Logger
	Timeout   time.Duration
}

// RegionalCallbacks turns the regional gateway's IPN and browser redirects into
// reconciler events.
type RegionalCallbacks struct {
	validator RegionalValidator
	applier   EventApplier
	metrics   *metrics.PaymentMetrics
	logg      *logger.Logger
	timeout   time.Duration
}

func NewRegionalCallbacks(params RegionalCallbackParams) (*RegionalCallbacks, error) {
	if params.Validator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "sslcommerz validator required")
	}
	if params.Applier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &RegionalCallbacks{
		validator: params.Validator,
		applier:   params.Applier,
		metrics:   params.Metrics,
		logg:      params.Logger,
		timeout:   timeout,
	}, nil
}

// HandleValidated validates valID with the gateway and completes the matching
// payment. Anything but VALID/VALIDATED is rejected as an invalid payment.
func (c *RegionalCallbacks) HandleValidated(ctx context.Context, valID string) (reconciler.Outcome, error) {
	valID = strings.TrimSpace(valID)
	if valID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "val_id is required")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	started := time.Now()
	validation, err := c.validator.Validate(callCtx, valID)
	cancel()
	c.metrics.ObserveGatewayCall(string(enums.PaymentGatewaySSLCommerz), "validate", time.Since(started), err)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return "", err
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment validation failed")
	}
	if !validation.IsValid() {
		status := ""
		if validation != nil {
			status = validation.Status
		}
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"val_id": valID,
			"status": status,
		}), "regional payment failed validation")
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Invalid payment").
			WithDetails(map[string]any{"status": status})
	}

	event := completedEvent(validation)
	event.ExternalID = valID
	return c.applier.Apply(ctx, event)
}

// HandleFailure records a failed or cancelled checkout for tranID once the
// gateway confirms it. A tran_id the gateway reports as paid is completed
// instead; one without a final answer is left untouched.
func (c *RegionalCallbacks) HandleFailure(ctx context.Context, tranID, reason string) (reconciler.Outcome, error) {
	tranID = strings.TrimSpace(tranID)
	if tranID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "tran_id is required")
	}
	ctx = c.logg.WithField(ctx, "tran_id", tranID)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	started := time.Now()
	result, err := c.validator.QueryTransaction(callCtx, tranID)
	cancel()
	c.metrics.ObserveGatewayCall(string(enums.PaymentGatewaySSLCommerz), "query", time.Since(started), err)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return "", err
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment status lookup failed")
	}

	if settled := result.Settled(); settled != nil {
		c.logg.Warn(ctx, "failure callback for a transaction the gateway reports as paid")
		if settled.TranID == "" {
			settled.TranID = tranID
		}
		return c.applier.Apply(ctx, completedEvent(settled))
	}
	status, final := failedStatus(result)
	if !final {
		c.logg.Warn(c.logg.WithField(ctx, "gateway_status", status), "failure callback not confirmed by gateway, ignoring")
		return reconciler.OutcomeIgnored, nil
	}

	return c.applier.Apply(ctx, reconciler.Event{
		Kind:            reconciler.KindFailed,
		Gateway:         enums.PaymentGatewaySSLCommerz,
		ExternalID:      tranID,
		TransactionID:   tranID,
		PaymentID:       parseID(tranID),
		FailureReason:   firstNonEmpty(reason, "Payment failed"),
		GatewayResponse: NormalizeGatewayResponse(map[string]any{"tran_id": tranID, "status": status}),
	})
}

var regionalFailedStatuses = map[string]bool{
	"FAILED":    true,
	"CANCELLED": true,
	"EXPIRED":   true,
}

// failedStatus reports whether every attempt under the tran_id ended without
// payment. An empty answer or an attempt still in flight is not final.
func failedStatus(result *sslcommerz.TransactionQuery) (string, bool) {
	if result == nil || len(result.Elements) == 0 {
		return "", false
	}
	var last string
	for _, el := range result.Elements {
		last = strings.ToUpper(strings.TrimSpace(el.Status))
		if !regionalFailedStatuses[last] {
			return last, false
		}
	}
	return last, true
}

func completedEvent(validation *sslcommerz.Validation) reconciler.Event {
	event := reconciler.Event{
		Kind:          reconciler.KindCompleted,
		Gateway:       enums.PaymentGatewaySSLCommerz,
		ExternalID:    validation.ValID,
		TransactionID: validation.TranID,
		PaymentID:     parseID(validation.TranID),
		Currency:      strings.TrimSpace(validation.Currency),
		GatewayResponse: NormalizeGatewayResponse(map[string]any{
			"id":       validation.ValID,
			"status":   validation.Status,
			"amount":   validation.Amount,
			"currency": validation.Currency,
		}),
	}
	if amount, err := decimal.NewFromString(strings.TrimSpace(validation.Amount)); err == nil {
		event.Amount = &amount
	}
	return event
}

func parseID(raw string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &id
}
