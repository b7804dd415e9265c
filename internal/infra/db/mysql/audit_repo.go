package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/dbutil"
)

const auditColumns = `id, tenant_id, created_at, contract_name, filename, source_sha256, source,
       critical, high, medium, low, info, findings_total, report_json, report_url`

var _ domain.Repository = (*AuditRepository)(nil)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Save insert/update Audit record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Audit) error {
	const q = `
INSERT INTO solidity_audits
(id, tenant_id, created_at, contract_name, filename, source_sha256, source,
 critical, high, medium, low, info, findings_total, report_json, report_url)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 critical=VALUES(critical), high=VALUES(high), medium=VALUES(medium), low=VALUES(low), info=VALUES(info),
 findings_total=VALUES(findings_total),
 report_json=VALUES(report_json), report_url=VALUES(report_url);
`
	report, err := dbutil.EncodeReport(a.Report)
	if err != nil {
		return err
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	c := a.Counts
	_, err = r.db.ExecContext(ctx, q,
		a.ID, dbutil.StringOrDash(a.TenantID), created, dbutil.StringOrDash(a.Report.ContractName), a.Filename, a.SourceSHA256, a.Source,
		c.Critical, c.High, c.Medium, c.Low, c.Info, c.Total,
		report, a.ReportURL,
	)
	return err
}

func scanAudit(row dbutil.Scanner) (*domain.Audit, error) {
	var a domain.Audit
	var contract, report string
	c := &a.Counts
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.CreatedAt, &contract, &a.Filename, &a.SourceSHA256, &a.Source,
		&c.Critical, &c.High, &c.Medium, &c.Low, &c.Info, &c.Total,
		&report, &a.ReportURL,
	); err != nil {
		return nil, err
	}
	rep, err := dbutil.DecodeReport(report)
	if err != nil {
		return nil, err
	}
	a.Report = rep
	if a.Report.ContractName == "" {
		a.Report.ContractName = contract
	}
	return &a, nil
}

func scanAudits(rows *sql.Rows) ([]*domain.Audit, error) {
	defer rows.Close()
	var out []*domain.Audit
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get by ID + Tenant
func (r *AuditRepository) Get(ctx context.Context, tenant string, id domain.AuditID) (*domain.Audit, error) {
	q := `SELECT ` + auditColumns + `
FROM solidity_audits
WHERE tenant_id=? AND id=? LIMIT 1;`
	a, err := scanAudit(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// Latest audits per tenant
func (r *AuditRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Audit, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + auditColumns + `
FROM solidity_audits
WHERE tenant_id=? ORDER BY created_at DESC, id DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	return scanAudits(rows)
}

func whereClause(tenant string, f domain.Filter) (string, []any) {
	where := " WHERE tenant_id=?"
	args := []any{tenant}
	if f.ContractName != "" {
		where += " AND contract_name LIKE ?"
		args = append(args, "%"+dbutil.EscapeLike(f.ContractName)+"%")
	}
	if clause := dbutil.SeverityClause(f.MinSeverity); clause != "" {
		where += " AND " + clause
	}
	return where, args
}

// Paginate with offset + limit (classic pagination)
func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int, f domain.Filter) (domain.PaginatedResult, error) {
	page, pageSize, offset := dbutil.PageBounds(page, pageSize)
	where, args := whereClause(tenant, f)

	q := `SELECT ` + auditColumns + `
FROM solidity_audits` + where + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, append(args, pageSize, offset)...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying audits: %w", err)
	}
	data, err := scanAudits(rows)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("scanning audits: %w", err)
	}

	total, err := r.Count(ctx, tenant, f)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}
	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: dbutil.TotalPages(total, pageSize),
	}, nil
}

// Count returns the total number of records matching the given filter
func (r *AuditRepository) Count(ctx context.Context, tenant string, f domain.Filter) (int64, error) {
	where, args := whereClause(tenant, f)
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM solidity_audits"+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Summary counts audit results since the given time
func (r *AuditRepository) Summary(ctx context.Context, tenant string, since time.Time) (domain.Summary, error) {
	const q = `
SELECT COUNT(*) AS total_audits,
       COALESCE(SUM(critical),0) AS critical,
       COALESCE(SUM(high),0)     AS high,
       COALESCE(SUM(medium),0)   AS medium
FROM solidity_audits
WHERE tenant_id=? AND created_at >= ?;
`
	var s domain.Summary
	if err := r.db.QueryRowContext(ctx, q, tenant, since).Scan(&s.TotalAudits, &s.Critical, &s.High, &s.Medium); err != nil {
		return domain.Summary{}, err
	}
	return s, nil
}
