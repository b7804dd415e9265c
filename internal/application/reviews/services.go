package reviews

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	"github.com/bryanwahyu/automaton-sol/internal/domain/ai"
	domaudits "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	domain "github.com/bryanwahyu/automaton-sol/internal/domain/reviews"
)

// AuditReader is the slice of the audit service the reviewer needs.
type AuditReader interface {
	Get(ctx context.Context, tenant string, id domaudits.AuditID) (*domaudits.Audit, error)
}

type Service struct {
	client ai.Client
	repo   domain.Repository
	audits AuditReader
	clock  application.Clock
	log    *zap.Logger
}

func NewService(client ai.Client, repo domain.Repository, audits AuditReader, clock application.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, repo: repo, audits: audits, clock: clock, log: log}
}

// Review asks the AI client for a second opinion on a stored audit and persists the answer.
func (s *Service) Review(ctx context.Context, tenant string, auditID string) (*domain.Review, error) {
	if s == nil || s.client == nil {
		return nil, ai.ErrDisabled
	}
	a, err := s.audits.Get(ctx, tenant, domaudits.AuditID(auditID))
	if err != nil {
		return nil, err
	}

	result, err := s.client.Review(ctx, a.Report.ContractName, a.Source)
	if err != nil {
		s.log.Warn("ai review failed",
			zap.String("tenant", tenant),
			zap.String("audit_id", auditID),
			zap.Error(err),
		)
		return nil, err
	}

	r := &domain.Review{
		ID:        domain.ReviewID(uuid.New().String()),
		TenantID:  tenant,
		AuditID:   auditID,
		Model:     s.client.ModelName(),
		Result:    result,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save review: %w", err)
	}
	return r, nil
}

// List returns a page of reviews for the tenant.
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Review, error) {
	if s == nil {
		return nil, ai.ErrDisabled
	}
	return s.repo.Paginate(ctx, tenant, page, pageSize)
}

// LatestForAudit returns the most recent review of an audit, or nil when there is none.
func (s *Service) LatestForAudit(ctx context.Context, tenant string, auditID string) (*domain.Review, error) {
	if s == nil {
		return nil, ai.ErrDisabled
	}
	return s.repo.LatestByAudit(ctx, tenant, auditID)
}
