package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/refund"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	appName = "storefront-backend"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// keyPrefixes lists the secret and restricted key prefixes accepted per environment.
var keyPrefixes = map[string][]string{
	testEnv: {"sk_test", "rk_test"},
	liveEnv: {"sk_live", "rk_live"},
}

// Client carries the Stripe environment and webhook secret. API calls go
// through stripe-go's package-level backend, configured once in NewClient.
type Client struct {
	environment   string
	signingSecret string
	logger        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	if logg == nil {
		logg = logger.Nop()
	}

	stripe.Key = apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: appName})
	stripe.DefaultLeveledLogger = &leveledLogger{logg: logg}

	logg.Info(logg.WithField(ctx, "stripe_env", env), "stripe client initialized")

	return &Client{
		environment:   env,
		signingSecret: signingSecret,
		logger:        logg,
	}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateCheckoutSession opens a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session params required")
	}
	params.Context = ctx
	fields := map[string]any{}
	if params.ClientReferenceID != nil {
		fields["order_id"] = *params.ClientReferenceID
	}
	return call(ctx, c, "create checkout session", fields, func() (*stripe.CheckoutSession, error) {
		return session.New(params)
	})
}

// CreateRefund refunds all or part of a captured payment intent.
func (c *Client) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if params == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund params required")
	}
	params.Context = ctx
	fields := map[string]any{}
	if params.PaymentIntent != nil {
		fields["payment_intent"] = *params.PaymentIntent
	}
	if params.Amount != nil {
		fields["amount_cents"] = *params.Amount
	}
	return call(ctx, c, "create refund", fields, func() (*stripe.Refund, error) {
		return refund.New(params)
	})
}

// ConstructEvent verifies the Stripe-Signature header and decodes the event.
// Events from an older account API version are still accepted.
func (c *Client) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, c.SigningSecret(), webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func call[T any](ctx context.Context, c *Client, op string, fields map[string]any, fn func() (T, error)) (T, error) {
	logg := c.logger
	if logg == nil {
		logg = logger.Nop()
	}
	ctx = logg.WithFields(ctx, fields)
	ctx = logg.WithField(ctx, "stripe_op", op)

	start := time.Now()
	out, err := fn()
	ctx = logg.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		mapped := mapStripeError(err, op)
		logg.Error(ctx, "stripe request failed", mapped)
		return out, mapped
	}
	logg.Info(ctx, "stripe request completed")
	return out, nil
}

func mapStripeError(err error, op string) error {
	msg := fmt.Sprintf("stripe %s failed", op)

	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, msg)
	}

	details := map[string]any{
		"stripe_code": string(stripeErr.Code),
		"status":      stripeErr.HTTPStatusCode,
	}
	if stripeErr.DeclineCode != "" {
		details["decline_code"] = string(stripeErr.DeclineCode)
	}
	if stripeErr.RequestID != "" {
		details["stripe_request_id"] = stripeErr.RequestID
	}
	return pkgerrors.Wrap(codeForStripeError(stripeErr), err, msg).WithDetails(details)
}

func codeForStripeError(err *stripe.Error) pkgerrors.Code {
	switch {
	case err.HTTPStatusCode == http.StatusBadRequest && err.Type == stripe.ErrorTypeInvalidRequest:
		return pkgerrors.CodeValidation
	case err.HTTPStatusCode == http.StatusTooManyRequests:
		return pkgerrors.CodeDependency
	case err.HTTPStatusCode == http.StatusUnauthorized, err.HTTPStatusCode == http.StatusForbidden:
		return pkgerrors.CodeDependency
	default:
		return pkgerrors.CodeGateway
	}
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	if _, ok := keyPrefixes[env]; !ok {
		return "", errInvalidStripeEnv
	}
	return env, nil
}

func validateAPIKey(env, key string) error {
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return errInvalidStripeEnv
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(key, prefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires a key starting with %s", env, strings.Join(prefixes, " or "))
}

// leveledLogger routes stripe-go's internal logging into the service logger.
type leveledLogger struct {
	logg *logger.Logger
}

func (l *leveledLogger) Debugf(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Infof(format string, v ...interface{}) {
	l.logg.Debug(context.Background(), fmt.Sprintf(format, v...))
}

func (l *leveledLogger) Warnf(format string, v ...interface{}) {
	l.logg.Warn(context.Background(), fmt.Sprintf(format, v...))
}

// Errorf logs at warn: failed calls are already reported by call.
func (l *leveledLogger) Errorf(format string, v ...interface{}) {
	l.logg.Warn(context.Background(), fmt.Sprintf(format, v...))
}
