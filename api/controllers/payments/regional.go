package payments

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/reconciler"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RegionalCallbacks is the regional gateway's validate-then-apply entry point.
type RegionalCallbacks interface {
	HandleValidated(ctx context.Context, valID string) (reconciler.Outcome, error)
	HandleFailure(ctx context.Context, tranID, reason string) (reconciler.Outcome, error)
}

// RedirectTargets are the storefront pages the browser is sent back to.
type RedirectTargets struct {
	Success string
	Cancel  string
}

type ipnResponse struct {
	Outcome reconciler.Outcome `json:"outcome"`
}

// RegionalIPN handles the gateway's server-to-server notification, sent either
// as a query string or as a form post.
func RegionalIPN(callbacks RegionalCallbacks, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbacks == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regional gateway unavailable"))
			return
		}
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification"))
			return
		}

		status := strings.ToUpper(strings.TrimSpace(r.Form.Get("status")))
		tranID := strings.TrimSpace(r.Form.Get("tran_id"))
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"ipn_status": status,
				"tran_id":    tranID,
			})
		}

		var (
			outcome reconciler.Outcome
			err     error
		)
		switch status {
		case "VALID", "VALIDATED", "":
			outcome, err = callbacks.HandleValidated(ctx, r.Form.Get("val_id"))
		case "FAILED":
			outcome, err = callbacks.HandleFailure(ctx, tranID, firstNonEmpty(r.Form.Get("error"), "Payment failed"))
		case "CANCELLED":
			outcome, err = callbacks.HandleFailure(ctx, tranID, "Payment cancelled by customer")
		default:
			if logg != nil {
				logg.Warn(ctx, "regional ipn status ignored")
			}
			responses.WriteSuccess(w, ipnResponse{Outcome: reconciler.OutcomeIgnored})
			return
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ipnResponse{Outcome: outcome})
	}
}

// RegionalSuccess validates the browser's success post and redirects to the
// storefront. A payment that fails validation lands on the cancel page.
func RegionalSuccess(callbacks RegionalCallbacks, targets RedirectTargets, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbacks == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regional gateway unavailable"))
			return
		}
		if err := r.ParseForm(); err != nil {
			responses.Redirect(w, r, withQuery(targets.Cancel, "status", "invalid"))
			return
		}
		tranID := strings.TrimSpace(r.Form.Get("tran_id"))
		if _, err := callbacks.HandleValidated(r.Context(), r.Form.Get("val_id")); err != nil {
			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "tran_id", tranID), "regional success redirect rejected: "+err.Error())
			}
			responses.Redirect(w, r, withQuery(targets.Cancel, "status", "failed"))
			return
		}
		responses.Redirect(w, r, withQuery(targets.Success, "tran_id", tranID))
	}
}

// RegionalFailure reports a failed or cancelled checkout, applied only once the
// gateway confirms it, and redirects to the storefront's cancel page.
func RegionalFailure(callbacks RegionalCallbacks, targets RedirectTargets, reason, status string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbacks == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "regional gateway unavailable"))
			return
		}
		if err := r.ParseForm(); err == nil {
			tranID := strings.TrimSpace(r.Form.Get("tran_id"))
			if _, err := callbacks.HandleFailure(r.Context(), tranID, reason); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "tran_id", tranID), "regional failure redirect not applied: "+err.Error())
			}
		}
		responses.Redirect(w, r, withQuery(targets.Cancel, "status", status))
	}
}

func withQuery(target, key, value string) string {
	if value == "" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
