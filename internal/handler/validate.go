package handler

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	hasLower = regexp.MustCompile(`[a-z]`)
	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasDigit = regexp.MustCompile(`\d`)
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > 255 {
		return "email is too long"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "email is not valid"
	}
	return ""
}

// validatePassword applies the registration policy: length bounds plus
// minimal entropy requirements.
func validatePassword(password string) string {
	if len(password) < 8 || len(password) > 128 {
		return "password must be between 8 and 128 characters"
	}
	if !hasLower.MatchString(password) || !hasUpper.MatchString(password) || !hasDigit.MatchString(password) {
		return "password must contain a lowercase letter, an uppercase letter and a digit"
	}
	if isSingleRune(password) {
		return "password must not repeat a single character"
	}
	if uniqueRunes(password) < 4 {
		return "password needs more character variety"
	}
	return ""
}

func isSingleRune(s string) bool {
	var first rune
	for i, c := range s {
		if i == 0 {
			first = c
			continue
		}
		if c != first {
			return false
		}
	}
	return true
}

func uniqueRunes(s string) int {
	seen := make(map[rune]struct{})
	for _, c := range s {
		if unicode.IsSpace(c) {
			continue
		}
		seen[c] = struct{}{}
	}
	return len(seen)
}
