package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	squarewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/square"
)

const squareNotificationURL = "https://api.shop.test/api/v1/payments/square/webhook"

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildSquareNotification(t, "payment.updated")
	signature := buildSquareSignature(payload, squareNotificationURL, "secret")
	service := &fakeSquareHandler{}
	dedupe, err := newDeduper("square-webhook")
	if err != nil {
		t.Fatalf("dedupe setup: %v", err)
	}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, dedupe, squareNotificationURL, nil)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/square/webhook", bytes.NewReader(payload))
		req.Header.Set(squareSignatureHeader, signature)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not be applied, got %d calls", service.calls)
	}
	if service.last == nil || service.last.Type != "payment.updated" {
		t.Fatalf("expected decoded notification, got %+v", service.last)
	}
}

func TestSquareWebhook_SignatureCoversURL(t *testing.T) {
	payload := buildSquareNotification(t, "payment.updated")
	signature := buildSquareSignature(payload, "https://elsewhere.test/hook", "secret")
	service := &fakeSquareHandler{}
	dedupe, err := newDeduper("square-webhook")
	if err != nil {
		t.Fatalf("dedupe setup: %v", err)
	}
	handler := SquareWebhook(service, &fakeSigningClient{secret: "secret"}, dedupe, squareNotificationURL, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/square/webhook", bytes.NewReader(payload))
	req.Header.Set(squareSignatureHeader, signature)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_MissingSignature(t *testing.T) {
	dedupe, err := newDeduper("square-webhook")
	if err != nil {
		t.Fatalf("dedupe setup: %v", err)
	}
	handler := SquareWebhook(&fakeSquareHandler{}, &fakeSigningClient{secret: "secret"}, dedupe, squareNotificationURL, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/square/webhook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func buildSquareNotification(t *testing.T, eventType string) []byte {
	notification := squarewebhook.Notification{
		MerchantID: "MERCHANT",
		EventID:    uuid.NewString(),
		Type:       eventType,
		CreatedAt:  "2025-03-10T09:00:00Z",
		Data: squarewebhook.NotificationData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
		},
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		t.Fatalf("marshal notification: %v", err)
	}
	return payload
}

func buildSquareSignature(payload []byte, url, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(url))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type fakeSquareHandler struct {
	calls int
	last  *squarewebhook.Notification
}

func (f *fakeSquareHandler) HandleEvent(ctx context.Context, notification *squarewebhook.Notification) error {
	f.calls++
	f.last = notification
	return nil
}

type fakeSigningClient struct {
	secret string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}
