package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domain "github.com/bryanwahyu/automaton-sol/internal/domain/reviews"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/dbutil"
)

var _ domain.Repository = (*ReviewRepository)(nil)

type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Save inserts a review record
func (r *ReviewRepository) Save(ctx context.Context, rv *domain.Review) error {
	const q = `
INSERT INTO solidity_reviews
  (id, tenant_id, audit_id, model, result_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  model=EXCLUDED.model, result_json=EXCLUDED.result_json;
`
	createdAt := rv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		rv.ID, dbutil.StringOrDash(rv.TenantID), rv.AuditID, rv.Model, dbutil.ResultJSON(rv.Result), createdAt)
	return err
}

// Paginate returns a page of review records ordered by created_at desc
func (r *ReviewRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Review, error) {
	_, pageSize, offset := dbutil.PageBounds(page, pageSize)
	const q = `
SELECT id, tenant_id, audit_id, model, result_json, created_at
FROM solidity_reviews
WHERE tenant_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.TenantID, &rv.AuditID, &rv.Model, &rv.Result, &rv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rv)
	}
	return out, rows.Err()
}

// LatestByAudit returns the latest review for a given audit, nil when none exists
func (r *ReviewRepository) LatestByAudit(ctx context.Context, tenant string, auditID string) (*domain.Review, error) {
	const q = `
SELECT id, tenant_id, audit_id, model, result_json, created_at
FROM solidity_reviews
WHERE tenant_id=$1 AND audit_id=$2
ORDER BY created_at DESC, id DESC
LIMIT 1;`
	var rv domain.Review
	err := r.db.QueryRowContext(ctx, q, tenant, auditID).
		Scan(&rv.ID, &rv.TenantID, &rv.AuditID, &rv.Model, &rv.Result, &rv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rv, nil
}
