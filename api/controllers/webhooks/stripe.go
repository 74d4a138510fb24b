package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// maxPayloadBytes matches the largest notification the gateways document.
const maxPayloadBytes = 1 << 16

type StripeEventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// EventDeduper claims gateway event ids. Claim returns false for an id that
// was already seen.
type EventDeduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// StripeVerifier checks the Stripe-Signature header against the raw body.
type StripeVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type ack struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// StripeWebhook verifies and applies card gateway events. Replays of an event
// id are acknowledged without being applied again.
func StripeWebhook(svc StripeEventHandler, client StripeVerifier, dedupe EventDeduper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || dedupe == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}
		event, err := client.ConstructEvent(payload, sigHeader)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}
		claimed, err := dedupe.Claim(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !claimed {
			if logg != nil {
				logg.Info(ctx, "stripe event already processed")
			}
			responses.WriteSuccess(w, ack{Received: true, Duplicate: true})
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if relErr := dedupe.Release(ctx, event.ID); relErr != nil && logg != nil {
				logg.Error(ctx, "release stripe event claim", relErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack{Received: true})
	}
}
