package stripe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewClient(ctx, config.StripeConfig{Secret: "whsec_x"}, nil)
	require.ErrorIs(t, err, errAPIKeyRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123"}, nil)
	require.ErrorIs(t, err, errSecretRequired)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_x", Env: "test"}, nil)
	require.Error(t, err)

	_, err = NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_x", Env: "staging"}, nil)
	require.ErrorIs(t, err, errInvalidStripeEnv)

	client, err := NewClient(ctx, config.StripeConfig{APIKey: "sk_test_123", Secret: " whsec_x ", Env: "TEST"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "test", client.Environment())
	assert.Equal(t, "whsec_x", client.SigningSecret())
}

func TestMapStripeError(t *testing.T) {
	invalid := &stripe.Error{HTTPStatusCode: 400, Type: stripe.ErrorTypeInvalidRequest, Code: stripe.ErrorCodeParameterMissing}
	mapped := mapStripeError(invalid, "create refund")
	assert.True(t, pkgerrors.IsCode(mapped, pkgerrors.CodeValidation))

	upstream := &stripe.Error{HTTPStatusCode: 500, Type: stripe.ErrorTypeAPI}
	mapped = mapStripeError(upstream, "create refund")
	assert.True(t, pkgerrors.IsCode(mapped, pkgerrors.CodeGateway))

	mapped = mapStripeError(errors.New("connection reset"), "create checkout session")
	assert.True(t, pkgerrors.IsCode(mapped, pkgerrors.CodeGateway))

	throttled := &stripe.Error{HTTPStatusCode: 429, Type: stripe.ErrorTypeInvalidRequest}
	mapped = mapStripeError(throttled, "create refund")
	assert.True(t, pkgerrors.IsCode(mapped, pkgerrors.CodeDependency))

	declined := &stripe.Error{HTTPStatusCode: 402, Type: stripe.ErrorTypeCard, DeclineCode: stripe.DeclineCodeInsufficientFunds, RequestID: "req_1"}
	mapped = mapStripeError(declined, "create refund")
	require.True(t, pkgerrors.IsCode(mapped, pkgerrors.CodeGateway))
	details, ok := pkgerrors.As(mapped).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "insufficient_funds", details["decline_code"])
	assert.Equal(t, "req_1", details["stripe_request_id"])
}

func TestValidateAPIKey(t *testing.T) {
	require.NoError(t, validateAPIKey(testEnv, "rk_test_abc"))
	require.NoError(t, validateAPIKey(liveEnv, "sk_live_abc"))
	err := validateAPIKey(liveEnv, "sk_test_abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sk_live or rk_live")
	require.ErrorIs(t, validateAPIKey("staging", "sk_test_abc"), errInvalidStripeEnv)
}

func TestNilClientAccessors(t *testing.T) {
	var c *Client
	assert.Empty(t, c.Environment())
	assert.Empty(t, c.SigningSecret())
}
