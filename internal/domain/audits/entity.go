package audits

import (
	"math"
	"strings"
	"time"
)

// ID tipe untuk Audit
type AuditID string

// Severity enum
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// Rank returns a sortable weight, higher is more severe. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Label returns the title-cased name used in report headings.
func (s Severity) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseSeverity normalises a user supplied severity string.
func ParseSeverity(raw string) (Severity, bool) {
	sev := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if sev == "informational" {
		sev = SeverityInfo
	}
	return sev, sev.Rank() > 0
}

// Finding is one reported issue. Code and Suggestion are illustrative snippets.
type Finding struct {
	ID          string   `json:"id"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code,omitempty"`
	Suggestion  string   `json:"suggestion,omitempty"`
}

// Metrics value object, every score is in [0,10].
type Metrics struct {
	Security      int `json:"security"`
	Performance   int `json:"performance"`
	GasEfficiency int `json:"gasEfficiency"`
	CodeQuality   int `json:"codeQuality"`
	Documentation int `json:"documentation"`
	OtherKeyAreas int `json:"otherKeyAreas"`
}

// Overall is the unweighted mean of the five displayed scores rounded to one decimal.
// OtherKeyAreas is not part of it.
func (m Metrics) Overall() float64 {
	sum := m.Security + m.Performance + m.GasEfficiency + m.CodeQuality + m.Documentation
	return math.Round(float64(sum)/5*10) / 10
}

// Report is the output of one audit run.
type Report struct {
	ContractName string    `json:"contractName"`
	Summary      string    `json:"summary"`
	Metrics      Metrics   `json:"metrics"`
	Findings     []Finding `json:"findings"`
	Suggestions  []string  `json:"suggestions"`
}

// BySeverity returns the findings with the given severity, keeping detection order.
func (r Report) BySeverity(sev Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// HasCritical reports whether any finding is critical.
func (r Report) HasCritical() bool {
	return len(r.BySeverity(SeverityCritical)) > 0
}

// Counts tallies findings per severity.
func (r Report) Counts() SeverityCounts {
	var c SeverityCounts
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		case SeverityInfo:
			c.Info++
		}
		c.Total++
	}
	return c
}

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Total    int `json:"total"`
}

// Aggregate Root: Audit
type Audit struct {
	ID           AuditID        `json:"id"`
	TenantID     string         `json:"tenant_id"`
	CreatedAt    time.Time      `json:"created_at"`
	Filename     string         `json:"filename,omitempty"`
	SourceSHA256 string         `json:"source_sha256"`
	Source       string         `json:"source,omitempty"`
	Report       Report         `json:"report"`
	Counts       SeverityCounts `json:"counts"`
	ReportURL    string         `json:"report_url,omitempty"`
}

// Filter narrows Paginate and Count. Zero values are ignored.
type Filter struct {
	ContractName string
	MinSeverity  Severity
}

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Audit `json:"data"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
}

// Summary rekap hasil audit N hari terakhir
type Summary struct {
	TotalAudits int `json:"total_audits"`
	Critical    int `json:"critical"`
	High        int `json:"high"`
	Medium      int `json:"medium"`
}
