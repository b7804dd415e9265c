package main

import (
	"github.com/charmbracelet/lipgloss"

	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	severityStyles = map[domain.Severity]lipgloss.Style{
		domain.SeverityCritical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		domain.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("202")),
		domain.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		domain.SeverityInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
)

func severityTag(sev domain.Severity) string {
	style, ok := severityStyles[sev]
	if !ok {
		style = dimStyle
	}
	return style.Render(fmtTag(sev))
}

func fmtTag(sev domain.Severity) string {
	tag := "[" + string(sev) + "]"
	for len(tag) < 10 {
		tag += " "
	}
	return tag
}
