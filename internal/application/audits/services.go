package audits

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

// Service implements use-cases untuk Audit.
// Reports is optional; when nil, rendered reports are only served from the repository.
type Service struct {
	Repo    domain.Repository
	Reports domain.ReportStore
	Clock   application.Clock
	Log     *zap.Logger
}

//
// ==== USE CASES ====
//

// SubmitCommand carries the submitted source explicitly from the entry view to the
// results view, replacing browser session storage.
type SubmitCommand struct {
	TenantID string
	Filename string
	Source   string
}

type SubmitResult struct {
	ID        string                `json:"id"`
	Report    domain.Report         `json:"report"`
	Counts    domain.SeverityCounts `json:"counts"`
	Overall   float64               `json:"overall"`
	ReportURL string                `json:"report_url,omitempty"`
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// Preview validates and audits without persisting anything.
func (s *Service) Preview(cmd SubmitCommand) (domain.Report, error) {
	if err := validate(cmd); err != nil {
		return domain.Report{}, err
	}
	return domain.Analyze(cmd.Source), nil
}

// Submit validates, audits, uploads the markdown report and persists the audit.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	if err := validate(cmd); err != nil {
		return SubmitResult{}, err
	}

	now := s.Clock.Now()
	id := uuid.New().String()
	report := domain.Analyze(cmd.Source)
	sum := sha256.Sum256([]byte(cmd.Source))

	a := &domain.Audit{
		ID:           domain.AuditID(id),
		TenantID:     cmd.TenantID,
		CreatedAt:    now,
		Filename:     cmd.Filename,
		SourceSHA256: hex.EncodeToString(sum[:]),
		Source:       cmd.Source,
		Report:       report,
		Counts:       report.Counts(),
	}

	log := s.logger().With(
		zap.String("tenant", cmd.TenantID),
		zap.String("audit_id", id),
		zap.String("contract", report.ContractName),
	)

	if s.Reports != nil {
		key := fmt.Sprintf("%s/%s/%s", cmd.TenantID, id, domain.ReportFilename(report))
		url, err := s.Reports.PutReport(ctx, key, []byte(domain.RenderMarkdown(report, now)))
		if err != nil {
			// report tetap disimpan, markdown bisa dirender ulang dari repo
			log.Warn("report upload failed", zap.Error(err))
		} else {
			a.ReportURL = url
		}
	}

	if err := s.Repo.Save(ctx, a); err != nil {
		return SubmitResult{ID: id}, fmt.Errorf("save audit: %w", err)
	}

	log.Info("audit stored",
		zap.Int("findings", a.Counts.Total),
		zap.Int("security", report.Metrics.Security),
		zap.Float64("overall", report.Metrics.Overall()),
	)

	return SubmitResult{
		ID:        id,
		Report:    report,
		Counts:    a.Counts,
		Overall:   report.Metrics.Overall(),
		ReportURL: a.ReportURL,
	}, nil
}

// Get ambil 1 audit by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.AuditID) (*domain.Audit, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Latest ambil N audit terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Audit, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Paginate returns one page of audits matching f.
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize, f)
}

// Summary rekap hasil audit N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (domain.Summary, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	since := s.Clock.Now().AddDate(0, 0, -sinceDays)
	return s.Repo.Summary(ctx, tenant, since)
}

// Markdown renders the stored report for download. The date line uses the audit's creation time.
func (s *Service) Markdown(ctx context.Context, tenant string, id domain.AuditID) (string, string, error) {
	a, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return "", "", err
	}
	return domain.ReportFilename(a.Report), domain.RenderMarkdown(a.Report, a.CreatedAt), nil
}

func validate(cmd SubmitCommand) error {
	if err := domain.ValidateFilename(cmd.Filename); err != nil {
		return err
	}
	return domain.ValidateSource(cmd.Source)
}
