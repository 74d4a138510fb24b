package sslcommerz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	sessionStatusSuccess = "SUCCESS"

	ValidationStatusValid     = "VALID"
	ValidationStatusValidated = "VALIDATED"

	queryAPIFile = "merchantTransIDvalidationAPI.php"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	errStoreIDRequired       = errors.New("sslcommerz store id is required")
	errStorePasswordRequired = errors.New("sslcommerz store password is required")
	errSessionAPIRequired    = errors.New("sslcommerz session api is required")
	errValidationAPIRequired = errors.New("sslcommerz validation api is required")
)

// Client talks to the hosted payment page API: session init and IPN validation.
type Client struct {
	httpClient    *http.Client
	storeID       string
	storePassword string
	sessionAPI    string
	validationAPI string
	queryAPI      string
	logger        *logger.Logger
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient swaps the transport, used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient validates merchant credentials and endpoints.
func NewClient(cfg config.SSLCommerzConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	storeID := strings.TrimSpace(cfg.StoreID)
	if storeID == "" {
		return nil, errStoreIDRequired
	}
	storePassword := strings.TrimSpace(cfg.StorePassword)
	if storePassword == "" {
		return nil, errStorePasswordRequired
	}
	if strings.TrimSpace(cfg.SessionAPI) == "" {
		return nil, errSessionAPIRequired
	}
	if strings.TrimSpace(cfg.ValidationAPI) == "" {
		return nil, errValidationAPIRequired
	}
	queryAPI := strings.TrimSpace(cfg.QueryAPI)
	if queryAPI == "" {
		derived, err := siblingEndpoint(cfg.ValidationAPI, queryAPIFile)
		if err != nil {
			return nil, err
		}
		queryAPI = derived
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		storeID:       storeID,
		storePassword: storePassword,
		sessionAPI:    strings.TrimSpace(cfg.SessionAPI),
		validationAPI: strings.TrimSpace(cfg.ValidationAPI),
		queryAPI:      queryAPI,
		logger:        logg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Customer carries billing and shipping contact data. Blank fields fall back to gateway-safe defaults.
type Customer struct {
	Name     string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	Postcode string
	Country  string
}

// SessionRequest is the payment page init payload.
type SessionRequest struct {
	Amount     decimal.Decimal
	Currency   string
	TranID     string
	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string
	Customer   Customer
}

// SessionResponse is the subset of the init response we rely on.
type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// Validation is the validator API answer for a val_id.
type Validation struct {
	Status      string `json:"status"`
	TranID      string `json:"tran_id"`
	ValID       string `json:"val_id"`
	Amount      string `json:"amount"`
	StoreAmount string `json:"store_amount"`
	Currency    string `json:"currency"`
	BankTranID  string `json:"bank_tran_id"`
	CardType    string `json:"card_type"`
	TranDate    string `json:"tran_date"`
}

// IsValid reports whether the gateway confirmed the transaction.
func (v *Validation) IsValid() bool {
	if v == nil {
		return false
	}
	status := strings.ToUpper(strings.TrimSpace(v.Status))
	return status == ValidationStatusValid || status == ValidationStatusValidated
}

// InitSession opens a hosted payment page session and returns its redirect URL.
func (c *Client) InitSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	if strings.TrimSpace(req.TranID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tran_id is required")
	}
	form := c.sessionForm(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionAPI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sslcommerz session request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out SessionResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.Status, sessionStatusSuccess) || strings.TrimSpace(out.GatewayPageURL) == "" {
		reason := strings.TrimSpace(out.FailedReason)
		if reason == "" {
			reason = "session was not created"
		}
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "sslcommerz session init failed").
			WithDetails(map[string]any{"status": out.Status, "reason": reason})
	}
	c.logInfo(ctx, "sslcommerz session created", map[string]any{"tran_id": req.TranID})
	return &out, nil
}

// Validate looks up a val_id reported by the IPN or browser callback.
func (c *Client) Validate(ctx context.Context, valID string) (*Validation, error) {
	valID = strings.TrimSpace(valID)
	if valID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "val_id is required")
	}
	endpoint, err := c.authorizedURL(c.validationAPI, "val_id", valID)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sslcommerz validation request")
	}
	var out Validation
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransactionQuery is the query API answer for a tran_id. A transaction may have
// several attempts; each is reported as one element.
type TransactionQuery struct {
	APIConnect string       `json:"APIConnect"`
	Found      int          `json:"no_of_trans_found"`
	Elements   []Validation `json:"element"`
}

// Settled returns the first attempt the gateway confirmed, if any.
func (q *TransactionQuery) Settled() *Validation {
	if q == nil {
		return nil
	}
	for i := range q.Elements {
		if q.Elements[i].IsValid() {
			return &q.Elements[i]
		}
	}
	return nil
}

// QueryTransaction asks the gateway for every attempt recorded under tranID.
func (c *Client) QueryTransaction(ctx context.Context, tranID string) (*TransactionQuery, error) {
	tranID = strings.TrimSpace(tranID)
	if tranID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tran_id is required")
	}
	endpoint, err := c.authorizedURL(c.queryAPI, "tran_id", tranID)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build sslcommerz query request")
	}
	var out TransactionQuery
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	if !strings.EqualFold(out.APIConnect, "DONE") {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "sslcommerz transaction query rejected").
			WithDetails(map[string]any{"apiConnect": out.APIConnect})
	}
	return &out, nil
}

func (c *Client) authorizedURL(raw, key, value string) (string, error) {
	endpoint, err := url.Parse(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse sslcommerz api url")
	}
	q := endpoint.Query()
	q.Set(key, value)
	q.Set("store_id", c.storeID)
	q.Set("store_passwd", c.storePassword)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()
	return endpoint.String(), nil
}

// siblingEndpoint swaps the last path segment of raw for file.
func siblingEndpoint(raw, file string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse sslcommerz validation api: %w", err)
	}
	u.Path = path.Join(path.Dir(u.Path), file)
	u.RawQuery = ""
	return u.String(), nil
}

func (c *Client) sessionForm(req SessionRequest) url.Values {
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	cust := req.Customer
	addr := orDefault(cust.Address, "N/A")
	city := orDefault(cust.City, "City")
	state := orDefault(cust.State, "State")
	postcode := orDefault(cust.Postcode, "1000")
	country := orDefault(cust.Country, "US")

	form := url.Values{}
	form.Set("store_id", c.storeID)
	form.Set("store_passwd", c.storePassword)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", currency)
	form.Set("tran_id", req.TranID)
	form.Set("success_url", req.SuccessURL)
	form.Set("fail_url", req.FailURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("ipn_url", req.IPNURL)
	form.Set("shipping_method", "N/A")
	form.Set("product_name", "E-commerce Order")
	form.Set("product_category", "General")
	form.Set("product_profile", "general")

	form.Set("cus_name", orDefault(cust.Name, "N/A"))
	form.Set("cus_email", orDefault(cust.Email, "N/A"))
	form.Set("cus_add1", addr)
	form.Set("cus_add2", "N/A")
	form.Set("cus_city", city)
	form.Set("cus_state", state)
	form.Set("cus_postcode", postcode)
	form.Set("cus_country", country)
	form.Set("cus_phone", orDefault(cust.Phone, "N/A"))
	form.Set("cus_fax", "N/A")

	form.Set("ship_name", orDefault(cust.Name, "N/A"))
	form.Set("ship_add1", addr)
	form.Set("ship_add2", "N/A")
	form.Set("ship_city", city)
	form.Set("ship_state", state)
	form.Set("ship_postcode", postcode)
	form.Set("ship_country", country)
	return form
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "sslcommerz request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "read sslcommerz response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeGateway, "sslcommerz returned an error status").
			WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decode sslcommerz response")
	}
	return nil
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	c.logger.Info(c.logger.WithFields(ctx, fields), msg)
}

func orDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

