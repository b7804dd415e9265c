package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxSourceChars caps the contract text embedded in the user message.
const MaxSourceChars = 24000

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior smart contract security auditor reviewing Solidity code. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase severity values: critical, high, medium, low, info.
- counts.total must equal counts.critical + counts.high + counts.medium + counts.low + counts.info.
- findings is an array of objects; include at least a title, severity, and summary. Keep items concise.
- Point to the function or line the finding is about when you can.
- Do not invent code that is not present in the contract.

Schema (example with empty values):
{
  "contract": "<string>",
  "counts": {"critical": 0, "high": 0, "medium": 0, "low": 0, "info": 0, "total": 0},
  "findings": [
    {
      "title": "<string>",
      "severity": "<critical|high|medium|low|info>",
      "location": "<string>",
      "summary": "<string>",
      "recommendation": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt builds the user message around the contract source.
// Sources longer than MaxSourceChars are truncated.
func GetUserPrompt(contractName, source string) string {
	truncated := ""
	if len(source) > MaxSourceChars {
		source = source[:MaxSourceChars]
		truncated = "\n(source truncated)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Review the Solidity contract %q and respond with the JSON per schema.\n\n", contractName)
	b.WriteString("```solidity\n")
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```")
	b.WriteString(truncated)
	return b.String()
}

// Suggestion matches the schema used by the system prompt.
type Suggestion struct {
	Contract string `json:"contract"`
	Counts   struct {
		Critical int `json:"critical"`
		High     int `json:"high"`
		Medium   int `json:"medium"`
		Low      int `json:"low"`
		Info     int `json:"info"`
		Total    int `json:"total"`
	} `json:"counts"`
	Findings []SuggestionFinding `json:"findings"`
	Advice   string              `json:"advice"`
}

type SuggestionFinding struct {
	Title          string `json:"title"`
	Severity       string `json:"severity"`
	Location       string `json:"location,omitempty"`
	Summary        string `json:"summary"`
	Recommendation string `json:"recommendation"`
}

// ParseSuggestion decodes a model answer. Models sometimes wrap the object in
// code fences despite the instructions, so those are stripped first.
func ParseSuggestion(raw string) (Suggestion, error) {
	var s Suggestion
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &s); err != nil {
		return Suggestion{}, fmt.Errorf("failed to decode suggestion: %w", err)
	}
	if s.Counts.Total == 0 {
		s.Counts.Total = s.Counts.Critical + s.Counts.High + s.Counts.Medium + s.Counts.Low + s.Counts.Info
	}
	return s, nil
}
