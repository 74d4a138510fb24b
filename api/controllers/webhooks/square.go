package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	squarewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/square"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const squareSignatureHeader = "x-square-hmacsha256-signature"

type SquareEventHandler interface {
	HandleEvent(ctx context.Context, notification *squarewebhook.Notification) error
}

// SquareSigner supplies the webhook signature key.
type SquareSigner interface {
	SigningSecret() string
}

// SquareWebhook verifies and applies square payment notifications.
// notificationURL must be the exact URL registered with square since it is
// part of the signed material.
func SquareWebhook(svc SquareEventHandler, client SquareSigner, dedupe EventDeduper, notificationURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || client == nil || dedupe == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "square webhook unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		signature := r.Header.Get(squareSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square signature missing"))
			return
		}
		if !ValidSquareSignature(payload, notificationURL, client.SigningSecret(), signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid square signature"))
			return
		}

		var notification squarewebhook.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode square notification"))
			return
		}
		eventID := strings.TrimSpace(notification.EventID)
		if eventID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "square event id missing"))
			return
		}

		claimed, err := dedupe.Claim(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !claimed {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "square_event_id", eventID), "square event already processed")
			}
			responses.WriteSuccess(w, ack{Received: true, Duplicate: true})
			return
		}

		if err := svc.HandleEvent(ctx, &notification); err != nil {
			if relErr := dedupe.Release(ctx, eventID); relErr != nil && logg != nil {
				logg.Error(ctx, "release square event claim", relErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ack{Received: true})
	}
}

// ValidSquareSignature checks the base64 HMAC-SHA256 of url+body.
func ValidSquareSignature(payload []byte, notificationURL, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(notificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}
