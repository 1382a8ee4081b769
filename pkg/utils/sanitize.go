package utils

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeString trims whitespace and escapes HTML entities.
func SanitizeString(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

// SanitizeEmail lowercases, trims and strips control characters.
func SanitizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	var result strings.Builder
	for _, r := range email {
		if unicode.IsPrint(r) && !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SanitizePhone keeps digits and the characters used in phone formatting.
func SanitizePhone(phone string) string {
	phone = strings.TrimSpace(phone)

	var result strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) || r == '+' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// SanitizeDigits strips everything but digits. Used for IMEI and NIN input,
// which the mobile client sometimes submits with spaces or dashes.
func SanitizeDigits(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
