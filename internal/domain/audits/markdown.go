package audits

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrNoOverall is returned by ParseOverall when the report has no Overall line.
var ErrNoOverall = errors.New("overall score not found in report")

var overallRe = regexp.MustCompile(`(?m)^- Overall: ([0-9]+(?:\.[0-9]+)?)/10\s*$`)

// ReportFilename is the download name for a report.
func ReportFilename(r Report) string {
	return r.ContractName + "_audit_report.md"
}

// RenderMarkdown formats the report for download. Findings are grouped by
// severity, critical first, keeping detection order inside each group.
func RenderMarkdown(r Report, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# AuditAI Smart Contract Audit Report\n\n")
	fmt.Fprintf(&b, "## Contract: %s\n\n", r.ContractName)
	fmt.Fprintf(&b, "%s\n\n", r.Summary)

	m := r.Metrics
	b.WriteString("## Security Metrics\n")
	fmt.Fprintf(&b, "- Security: %d/10\n", m.Security)
	fmt.Fprintf(&b, "- Performance: %d/10\n", m.Performance)
	fmt.Fprintf(&b, "- Gas Efficiency: %d/10\n", m.GasEfficiency)
	fmt.Fprintf(&b, "- Code Quality: %d/10\n", m.CodeQuality)
	fmt.Fprintf(&b, "- Documentation: %d/10\n", m.Documentation)
	fmt.Fprintf(&b, "- Overall: %.1f/10\n\n", m.Overall())

	b.WriteString("## Findings\n\n")
	if len(r.Findings) == 0 {
		b.WriteString("No findings.\n\n")
	}
	for _, sev := range Severities {
		group := r.BySeverity(sev)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s (%d)\n\n", sev.Label(), len(group))
		for _, f := range group {
			writeFinding(&b, f)
		}
	}

	b.WriteString("## Suggestions for Improvement\n")
	if len(r.Suggestions) == 0 {
		b.WriteString("No suggestions available.\n")
	}
	for _, s := range r.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	fmt.Fprintf(&b, "\nGenerated by AuditAI - %s\n", generatedAt.Format("2006-01-02"))
	return b.String()
}

func writeFinding(b *strings.Builder, f Finding) {
	fmt.Fprintf(b, "#### %s: %s (%s)\n\n", f.ID, f.Title, strings.ToUpper(string(f.Severity)))
	fmt.Fprintf(b, "%s\n\n", f.Description)
	if f.Code != "" {
		fmt.Fprintf(b, "**Problematic Code:**\n```solidity\n%s\n```\n\n", f.Code)
	}
	if f.Suggestion != "" {
		fmt.Fprintf(b, "**Suggested Fix:**\n```solidity\n%s\n```\n\n", f.Suggestion)
	}
}

// ParseOverall reads the Overall score back out of a rendered report.
func ParseOverall(markdown string) (float64, error) {
	m := overallRe.FindStringSubmatch(markdown)
	if m == nil {
		return 0, ErrNoOverall
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse overall %q: %w", m[1], err)
	}
	return v, nil
}
