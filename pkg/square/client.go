package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// Square payment statuses the reconciler acts on.
const (
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCanceled  = "CANCELED"
)

var environments = map[string]string{
	"sandbox":    "https://connect.squareupsandbox.com",
	"production": "https://connect.squareup.com",
}

var redactedKeys = []string{"card", "nonce", "source", "token", "cvv", "cvc", "secret", "email", "phone"}

// Client wraps the Square SDK for card charges and refunds against one location.
type Client struct {
	sdk           *sqclient.Client
	environment   string
	locationID    string
	webhookSecret string
	logger        *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("square logger is required")
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Environment()))
	if env == "" {
		env = "sandbox"
	}
	baseURL, ok := environments[env]
	if !ok {
		return nil, fmt.Errorf("square environment must be sandbox or production, got %q", env)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("square access token is required")
	}
	location := strings.TrimSpace(cfg.LocationID)
	if location == "" {
		return nil, errors.New("square location id is required")
	}

	logg.Info(logg.WithField(ctx, "square_env", env), "square client initialized")
	return &Client{
		sdk:           sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token)),
		environment:   env,
		locationID:    location,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		logger:        logg,
	}, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret is the webhook signature key for notification verification.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// idempotencyKey uses the caller's key when given. Square caps keys at 45
// characters, which a prefix plus a uuid stays under.
func idempotencyKey(prefix, provided string) string {
	if provided = strings.TrimSpace(provided); provided != "" {
		return provided
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "sf"
	}
	return prefix + "-" + uuid.NewString()
}

// call runs one SDK request with request/response logging and error mapping.
func call[T any](ctx context.Context, c *Client, op string, fields map[string]any, fn func(context.Context) (T, error)) (T, error) {
	ctx = c.logger.WithFields(ctx, redactFields(op, fields))
	c.logger.Debug(ctx, "square request")

	start := time.Now()
	out, err := fn(ctx)
	ctx = c.logger.WithField(ctx, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		mapped := mapSquareError(err, op)
		c.logger.Error(ctx, "square request failed", mapped)
		return out, mapped
	}
	c.logger.Info(ctx, "square request completed")
	return out, nil
}

func redactFields(op string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	out["square_op"] = op
	for k, v := range fields {
		out[k] = redact(k, v)
	}
	return out
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range redactedKeys {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// mapSquareError converts SDK failures into domain errors. Square's error
// list can override the status-based code for auth and idempotency failures.
func mapSquareError(err error, op string) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "square "+op+" failed")
	}

	code := domainCodeForStatus(apiErr.StatusCode)
	sqErrs := squareErrors(apiErr)
	details := make([]map[string]any, 0, len(sqErrs))
	for _, sqErr := range sqErrs {
		if sqErr == nil {
			continue
		}
		details = append(details, map[string]any{
			"category": string(sqErr.Category),
			"code":     string(sqErr.Code),
		})
		switch {
		case sqErr.Code == sq.ErrorCodeIdempotencyKeyReused:
			code = pkgerrors.CodeIdempotency
		case sqErr.Category == sq.ErrorCategoryAuthenticationError:
			code = pkgerrors.CodeUnauthorized
		}
	}

	mapped := pkgerrors.Wrap(code, err, "square "+op+" failed")
	if len(details) > 0 {
		mapped = mapped.WithDetails(map[string]any{"errors": details})
	}
	return mapped
}

// squareErrors decodes the {"errors": [...]} body the SDK keeps as the wrapped error.
func squareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var body struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &body); err != nil {
		return nil
	}
	return body.Errors
}

// domainCodeForStatus maps Square's HTTP status. Card declines arrive as 402.
func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status == http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case status == http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case status == http.StatusPaymentRequired:
		return pkgerrors.CodeGateway
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeGateway
	}
}

func money(amountCents int64, currency string) *sq.Money {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "USD"
	}
	cur := sq.Currency(code)
	return &sq.Money{Amount: &amountCents, Currency: &cur}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
