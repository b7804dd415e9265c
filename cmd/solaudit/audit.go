package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appaudits "github.com/bryanwahyu/automaton-sol/internal/application/audits"
	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

func newAuditCmd(opts *cliOptions) *cobra.Command {
	var (
		format string
		outDir string
		render bool
	)

	cmd := &cobra.Command{
		Use:   "audit <file.sol>",
		Short: "Audit a Solidity file and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.Size() > domain.MaxSourceBytes {
				return domain.ErrSourceTooLarge
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			svc := &appaudits.Service{Clock: opts.clock, Log: opts.logger}
			report, err := svc.Preview(appaudits.SubmitCommand{
				Filename: filepath.Base(path),
				Source:   string(data),
			})
			if err != nil {
				return err
			}
			opts.logger.Debug("audit finished",
				zap.String("file", path),
				zap.String("contract", report.ContractName),
				zap.Int("findings", len(report.Findings)),
			)

			md := domain.RenderMarkdown(report, opts.clock.Now())
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				dst := filepath.Join(outDir, domain.ReportFilename(report))
				if err := os.WriteFile(dst, []byte(md), 0o644); err != nil {
					return err
				}
				opts.logger.Info("report written", zap.String("path", dst))
			}

			out := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					domain.Report
					Counts  domain.SeverityCounts `json:"counts"`
					Overall float64               `json:"overall"`
				}{report, report.Counts(), report.Metrics.Overall()})
			case "text":
				return writeText(out, report)
			case "md", "markdown":
				if render {
					r, err := glamour.NewTermRenderer(
						glamour.WithAutoStyle(),
						glamour.WithWordWrap(100),
					)
					if err != nil {
						return err
					}
					styled, err := r.Render(md)
					if err != nil {
						return err
					}
					_, err = io.WriteString(out, styled)
					return err
				}
				_, err := io.WriteString(out, md)
				return err
			default:
				return fmt.Errorf("unknown format %q (allowed: md, json, text)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "md", "output format: md, json, text")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "also write <Contract>_audit_report.md into this directory")
	cmd.Flags().BoolVar(&render, "render", false, "pretty-print markdown in the terminal")
	return cmd
}

func writeText(w io.Writer, r domain.Report) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.ContractName))
	fmt.Fprintf(&b, "  overall %.1f/10\n", r.Metrics.Overall())
	b.WriteString(dimStyle.Render(fmt.Sprintf("  security %d  performance %d  gas %d  quality %d  docs %d",
		r.Metrics.Security, r.Metrics.Performance, r.Metrics.GasEfficiency,
		r.Metrics.CodeQuality, r.Metrics.Documentation)))
	b.WriteString("\n")
	for _, sev := range domain.Severities {
		for _, f := range r.BySeverity(sev) {
			fmt.Fprintf(&b, "  %s %s %s\n", severityTag(sev), f.ID, f.Title)
		}
	}
	if len(r.Findings) == 0 {
		b.WriteString("  no findings\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the rule ids checked by the auditor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range domain.RuleIDs() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
