package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/jrsteele09/go-movie-server/internal/utils"
	"github.com/jrsteele09/go-movie-server/users"
)

const MaxDisplayNameLength = 40

// validateSignup checks the canonical username and the password.
func validateSignup(canonical, password string) error {
	if canonical == "" || password == "" {
		return apperrors.Validation(msgCredentialsRequired)
	}
	if err := users.ValidateUsername(canonical); err != nil {
		return apperrors.Validation(upperFirst(err.Error()))
	}
	if utf8.RuneCountInString(password) < users.MinPasswordLength {
		return apperrors.Validation(msgPasswordTooShort)
	}
	return nil
}

// SanitizeDisplayName trims, strips control characters and caps the length.
func SanitizeDisplayName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	runes := []rune(strings.TrimSpace(cleaned))
	if len(runes) > MaxDisplayNameLength {
		runes = runes[:MaxDisplayNameLength]
	}
	return strings.TrimSpace(string(runes))
}

// SanitizePreferences keeps JSON objects and replaces anything else with an
// empty one.
func SanitizePreferences(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return map[string]any{}
	}
	return utils.CloneJSON(m)
}

// SanitizeMediaList keeps the first limit object entries of v, newest first.
// Non-object entries are dropped.
func SanitizeMediaList(v any, limit int) []users.Media {
	out := []users.Media{}
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []users.Media:
		for _, m := range list {
			items = append(items, m)
		}
	default:
		return out
	}

	for _, item := range items {
		if len(out) >= limit {
			break
		}
		if m, ok := item.(map[string]any); ok && m != nil {
			out = append(out, utils.CloneJSON(m))
		}
	}
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
