package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	emailRegex        = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	languageCodeRegex = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)
	controlCharRegex  = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	unsafeNameRegex   = regexp.MustCompile(`[^A-Za-z0-9._\-]+`)
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateLanguageCode accepts ISO 639 codes with an optional region, e.g. "es" or "pt-BR"
func ValidateLanguageCode(code string) error {
	if !languageCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid language code: %s", code)
	}
	return nil
}

// ValidateAmount validates a money amount entered by staff
func ValidateAmount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("amount must not be negative: %.2f", amount)
	}

	if amount > 100000 {
		return fmt.Errorf("amount exceeds maximum limit: %.2f", amount)
	}

	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlCharRegex.ReplaceAllString(s, "")
}

// SanitizeFilename reduces an uploaded file name to a safe storage key component
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeNameRegex.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "document"
	}
	return base
}
