package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

var tenantRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantRe.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateAuditID accepts the uuid ids generated on submit.
func ValidateAuditID(id string) error {
	if id == "" {
		return fmt.Errorf("audit ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid audit ID format")
	}
	return nil
}

// ValidateSeverity parses an optional minimum severity filter.
func ValidateSeverity(s string) (audits.Severity, error) {
	if s == "" {
		return "", nil
	}
	sev, ok := audits.ParseSeverity(s)
	if !ok {
		return "", fmt.Errorf("invalid severity: %s (allowed: critical, high, medium, low, info)", s)
	}
	return sev, nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100
	}
	return limit
}

// ValidatePage clamps the page number to >= 1.
func ValidatePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
