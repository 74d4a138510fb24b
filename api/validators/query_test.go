package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders?limit=10&cursor=abc", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, "abc", params.Cursor)

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	params, err = ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/orders?limit=1000", nil)
	_, err = ParsePagination(req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	parsed, err := ParseURLUUID(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseURLUUID(req, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryTimeAndDecimal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2025-01-02&to=2025-01-03T10:00:00Z&min=12.50&bad=x", nil)

	from, err := ParseQueryTime(req, "from")
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, 2, from.Day())

	to, err := ParseQueryTime(req, "to")
	require.NoError(t, err)
	assert.Equal(t, 10, to.Hour())

	min, err := ParseQueryDecimal(req, "min")
	require.NoError(t, err)
	assert.Equal(t, "12.5", min.String())

	_, err = ParseQueryDecimal(req, "bad")
	assert.Error(t, err)

	missing, err := ParseQueryTime(req, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
