// Package dbutil holds helpers shared by the SQL repositories.
package dbutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// EscapeLike escapes special characters in LIKE patterns. Backslash is the escape character.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// SeverityClause returns a column predicate matching audits with at least one
// finding at or above min. Empty for unknown severities.
func SeverityClause(min domain.Severity) string {
	switch min {
	case domain.SeverityCritical:
		return "critical > 0"
	case domain.SeverityHigh:
		return "(critical + high) > 0"
	case domain.SeverityMedium:
		return "(critical + high + medium) > 0"
	case domain.SeverityLow:
		return "(critical + high + medium + low) > 0"
	case domain.SeverityInfo:
		return "findings_total > 0"
	default:
		return ""
	}
}

// PageBounds applies defaults and returns the normalised page, size and offset.
func PageBounds(page, pageSize int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return page, pageSize, (page - 1) * pageSize
}

// TotalPages computes the page count for total rows.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// EncodeReport serialises a report for the report_json column.
func EncodeReport(r domain.Report) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	return string(b), nil
}

// DecodeReport parses the report_json column.
func DecodeReport(raw string) (domain.Report, error) {
	var r domain.Report
	if strings.TrimSpace(raw) == "" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return r, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

// ResultJSON makes sure a review result is valid JSON; invalid input is wrapped as {"raw": ...}.
func ResultJSON(result string) string {
	if strings.TrimSpace(result) == "" {
		return "{}"
	}
	var js any
	if json.Unmarshal([]byte(result), &js) != nil {
		b, _ := json.Marshal(map[string]string{"raw": result})
		return string(b)
	}
	return result
}
