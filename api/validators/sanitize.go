package validators

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxSearchTermLen = 100

// SanitizeString trims input and caps it at maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	return strings.TrimSpace(string([]rune(trimmed)[:maxLen]))
}

// SearchTerm reads a free-text query parameter used in ILIKE filters.
func SearchTerm(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxSearchTermLen)
}
