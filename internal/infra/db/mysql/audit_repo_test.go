package mysql

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/dbutil"
)

var created = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

var columns = []string{"id", "tenant_id", "created_at", "contract_name", "filename", "source_sha256", "source",
	"critical", "high", "medium", "low", "info", "findings_total", "report_json", "report_url"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAuditRepository_Save(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	rep := domain.Analyze("contract Vault { function w() { x.transfer(1); } }")
	a := &domain.Audit{ID: "a1", TenantID: "acme", CreatedAt: created, SourceSHA256: "abc", Source: "src", Report: rep, Counts: rep.Counts()}
	reportJSON, err := dbutil.EncodeReport(rep)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO solidity_audits")).
		WithArgs("a1", "acme", created, "Vault", "", "abc", "src", 0, 1, 0, 1, 1, 3, reportJSON, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM solidity_audits")).
		WithArgs("acme", domain.AuditID("missing")).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	rep := domain.Analyze("contract Token {}")
	reportJSON, _ := dbutil.EncodeReport(rep)
	mock.ExpectQuery(regexp.QuoteMeta("FROM solidity_audits")).
		WithArgs("acme", domain.AuditID("a1")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a1", "acme", created, "Token", "Token.sol", "abc", "contract Token {}", 0, 0, 0, 1, 0, 1, reportJSON, ""))

	a, err := repo.Get(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, rep, a.Report)
	assert.Equal(t, domain.SeverityCounts{Low: 1, Total: 1}, a.Counts)
	assert.Equal(t, "Token.sol", a.Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_PaginateWithFilter(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id=? AND contract_name LIKE ? AND (critical + high) > 0")).
		WithArgs("acme", `%100\%%`, 10, 10).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM solidity_audits WHERE tenant_id=? AND contract_name LIKE ?")).
		WithArgs("acme", `%100\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	res, err := repo.Paginate(context.Background(), "acme", 2, 10, domain.Filter{ContractName: "100%", MinSeverity: domain.SeverityHigh})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, int64(11), res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepository_Summary(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) AS total_audits")).
		WithArgs("acme", created).
		WillReturnRows(sqlmock.NewRows([]string{"total_audits", "critical", "high", "medium"}).AddRow(4, 0, 3, 2))

	s, err := repo.Summary(context.Background(), "acme", created)
	require.NoError(t, err)
	assert.Equal(t, domain.Summary{TotalAudits: 4, High: 3, Medium: 2}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewRepository_LatestByAuditEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReviewRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM solidity_reviews")).
		WithArgs("acme", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "audit_id", "model", "result_json", "created_at"}))

	rv, err := repo.LatestByAudit(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Nil(t, rv)
	assert.NoError(t, mock.ExpectationsWereMet())
}
