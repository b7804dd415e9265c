package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

func TestValidateTenantID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("acme_01-x"))
	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("acme corp"))
	assert.Error(t, ValidateTenantID("../etc"))
}

func TestValidateAuditID(t *testing.T) {
	assert.NoError(t, ValidateAuditID("3f1b6a52-2a4c-4f1e-9b9e-0d7c3f0b8a11"))
	assert.Error(t, ValidateAuditID(""))
	assert.Error(t, ValidateAuditID("42"))
}

func TestValidateSeverity(t *testing.T) {
	sev, err := ValidateSeverity("High")
	assert.NoError(t, err)
	assert.Equal(t, audits.SeverityHigh, sev)

	sev, err = ValidateSeverity("")
	assert.NoError(t, err)
	assert.Empty(t, sev)

	_, err = ValidateSeverity("urgent")
	assert.Error(t, err)
}

func TestClamps(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 100, ValidateLimit(1000))
	assert.Equal(t, 5, ValidateLimit(5))
	assert.Equal(t, 1, ValidatePage(-3))
	assert.Equal(t, 7, ValidateDays(0))
	assert.Equal(t, 365, ValidateDays(9999))
	assert.Equal(t, 30, ValidateDays(30))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Vault.sol", SanitizeString("  Vault\x00.sol\x07 "))
	assert.Equal(t, "a\tb\nc", SanitizeString("a\tb\nc"))
}
