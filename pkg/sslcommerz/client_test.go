package sslcommerz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(config.SSLCommerzConfig{
		StoreID:       "store1",
		StorePassword: "secret",
		SessionAPI:    srv.URL + "/gwprocess/v4/api.php",
		ValidationAPI: srv.URL + "/validator/api/validationserverAPI.php",
	}, nil, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.SSLCommerzConfig{StorePassword: "x", SessionAPI: "a", ValidationAPI: "b"}, nil)
	require.ErrorIs(t, err, errStoreIDRequired)

	_, err = NewClient(config.SSLCommerzConfig{StoreID: "x", SessionAPI: "a", ValidationAPI: "b"}, nil)
	require.ErrorIs(t, err, errStorePasswordRequired)
}

func TestInitSessionPostsFormWithDefaults(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"SUCCESS","sessionkey":"abc","GatewayPageURL":"https://pay.example/abc"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	resp, err := c.InitSession(context.Background(), SessionRequest{
		Amount:   decimal.RequireFromString("120.5"),
		TranID:   "TXN-1",
		IPNURL:   "https://api.example/api/v1/payments/ipn",
		Customer: Customer{Name: "Jane", Email: "jane@example.com", City: "Dhaka"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", resp.GatewayPageURL)

	assert.Equal(t, "store1", form["store_id"])
	assert.Equal(t, "120.50", form["total_amount"])
	assert.Equal(t, "USD", form["currency"])
	assert.Equal(t, "TXN-1", form["tran_id"])
	assert.Equal(t, "Dhaka", form["cus_city"])
	assert.Equal(t, "State", form["cus_state"])
	assert.Equal(t, "1000", form["cus_postcode"])
	assert.Equal(t, "US", form["ship_country"])
	assert.Equal(t, "N/A", form["cus_phone"])
	assert.Equal(t, "E-commerce Order", form["product_name"])
}

func TestInitSessionFailedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"FAILED","failedreason":"Store Credential Error"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.InitSession(context.Background(), SessionRequest{Amount: decimal.NewFromInt(10), TranID: "TXN-2"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
}

func TestInitSessionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.InitSession(context.Background(), SessionRequest{Amount: decimal.NewFromInt(10), TranID: "TXN-3"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeGateway, typed.Code())
	assert.True(t, pkgerrors.MetadataFor(typed.Code()).Retryable)
}

func TestValidateSendsCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "VAL-1", q.Get("val_id"))
		require.Equal(t, "store1", q.Get("store_id"))
		require.Equal(t, "secret", q.Get("store_passwd"))
		require.Equal(t, "json", q.Get("format"))
		_, _ = w.Write([]byte(`{"status":"VALIDATED","tran_id":"TXN-1","val_id":"VAL-1","amount":"120.50"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	v, err := c.Validate(context.Background(), "VAL-1")
	require.NoError(t, err)
	assert.True(t, v.IsValid())
	assert.Equal(t, "TXN-1", v.TranID)
}

func TestValidationIsValid(t *testing.T) {
	assert.True(t, (&Validation{Status: "valid"}).IsValid())
	assert.False(t, (&Validation{Status: "INVALID_TRANSACTION"}).IsValid())
	var nilValidation *Validation
	assert.False(t, nilValidation.IsValid())
}

func TestValidateRequiresValID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Validate(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestQueryTransactionUsesSiblingEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/validator/api/merchantTransIDvalidationAPI.php", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "TXN-1", q.Get("tran_id"))
		require.Equal(t, "store1", q.Get("store_id"))
		require.Equal(t, "secret", q.Get("store_passwd"))
		_, _ = w.Write([]byte(`{"APIConnect":"DONE","no_of_trans_found":2,"element":[
			{"status":"FAILED","tran_id":"TXN-1","val_id":"","amount":"120.50","currency":"USD"},
			{"status":"VALID","tran_id":"TXN-1","val_id":"VAL-9","amount":"120.50","currency":"USD"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	res, err := c.QueryTransaction(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Found)
	require.Len(t, res.Elements, 2)
	settled := res.Settled()
	require.NotNil(t, settled)
	assert.Equal(t, "VAL-9", settled.ValID)
}

func TestQueryTransactionRejectedConnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"APIConnect":"INVALID_REQUEST"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.QueryTransaction(context.Background(), "TXN-1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeGateway))
}

func TestQueryTransactionExplicitEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/custom/query", r.URL.Path)
		_, _ = w.Write([]byte(`{"APIConnect":"DONE","no_of_trans_found":0,"element":[]}`))
	}))
	defer srv.Close()

	c, err := NewClient(config.SSLCommerzConfig{
		StoreID:       "store1",
		StorePassword: "secret",
		SessionAPI:    srv.URL + "/gwprocess/v4/api.php",
		ValidationAPI: srv.URL + "/validator/api/validationserverAPI.php",
		QueryAPI:      srv.URL + "/custom/query",
	}, nil, WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	res, err := c.QueryTransaction(context.Background(), "TXN-1")
	require.NoError(t, err)
	assert.Nil(t, res.Settled())
}
