package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserPrompt(t *testing.T) {
	p := GetUserPrompt("Vault", "contract Vault {}")
	assert.Contains(t, p, `"Vault"`)
	assert.Contains(t, p, "```solidity\ncontract Vault {}\n```")
	assert.NotContains(t, p, "truncated")

	long := strings.Repeat("a", MaxSourceChars+10)
	p = GetUserPrompt("Big", long)
	assert.Contains(t, p, "(source truncated)")
	assert.NotContains(t, p, strings.Repeat("a", MaxSourceChars+1))
}

func TestSystemPromptMentionsSchema(t *testing.T) {
	sp := GetSystemPrompt()
	for _, key := range []string{`"contract"`, `"counts"`, `"findings"`, `"advice"`} {
		assert.Contains(t, sp, key)
	}
}

func TestParseSuggestion(t *testing.T) {
	raw := "```json\n" + `{"contract":"Vault","counts":{"high":1,"low":2},"findings":[{"title":"Reentrancy","severity":"high","summary":"s","recommendation":"r"}],"advice":"a"}` + "\n```"
	s, err := ParseSuggestion(raw)
	require.NoError(t, err)
	assert.Equal(t, "Vault", s.Contract)
	assert.Equal(t, 3, s.Counts.Total)
	require.Len(t, s.Findings, 1)
	assert.Equal(t, "high", s.Findings[0].Severity)

	_, err = ParseSuggestion("not json")
	assert.Error(t, err)
}
