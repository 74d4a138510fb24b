package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestLoggingWritesAccessLine(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
	}
	if line["level"] != "warn" {
		t.Fatalf("expected warn for 404, got %v", line["level"])
	}
	if line["status"] != float64(http.StatusNotFound) || line["bytes"] != float64(2) {
		t.Fatalf("unexpected status/bytes: %v", line)
	}
	if line["route"] != "/orders/{id}" || line["path"] != "/orders/42" {
		t.Fatalf("unexpected route/path: %v", line)
	}
}

func TestLoggingNilLoggerPassesThrough(t *testing.T) {
	called := false
	h := Logging(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected handler to run")
	}
}
