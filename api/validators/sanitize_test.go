package validators

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeStringTrimsAndCaps(t *testing.T) {
	if got := SanitizeString("  order  ", 0); got != "order" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if got := SanitizeString("héllo wörld", 5); got != "héllo" {
		t.Fatalf("expected rune-safe cap, got %q", got)
	}
}

func TestSearchTermCapsLength(t *testing.T) {
	req := httptest.NewRequest("GET", "/?search="+strings.Repeat("a", 150), nil)
	if got := SearchTerm(req, "search"); len(got) != maxSearchTermLen {
		t.Fatalf("expected %d chars, got %d", maxSearchTermLen, len(got))
	}
}
