package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaudits "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	domreviews "github.com/bryanwahyu/automaton-sol/internal/domain/reviews"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(ctx, db))
	// idempotent
	require.NoError(t, Migrate(ctx, db))
	return db
}

var base = time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)

func newAudit(id, tenant, source string, at time.Time) *domaudits.Audit {
	rep := domaudits.Analyze(source)
	return &domaudits.Audit{
		ID:           domaudits.AuditID(id),
		TenantID:     tenant,
		CreatedAt:    at,
		SourceSHA256: "0000000000000000000000000000000000000000000000000000000000000000",
		Source:       source,
		Report:       rep,
		Counts:       rep.Counts(),
	}
}

func seed(t *testing.T, repo *AuditRepository) {
	t.Helper()
	ctx := context.Background()
	audits := []*domaudits.Audit{
		newAudit("a1", "acme", "/** ok */ contract Clean { function public }", base),
		newAudit("a2", "acme", "contract Vault { function w() { x.transfer(1); } }", base.Add(time.Hour)),
		newAudit("a3", "acme", "/** ok */ contract Timer { uint t = block.timestamp; }", base.Add(2*time.Hour)),
		newAudit("b1", "other", "contract Vault { function w() { x.transfer(1); } }", base.Add(3*time.Hour)),
	}
	for _, a := range audits {
		require.NoError(t, repo.Save(ctx, a))
	}
}

func TestAuditRepository_SaveGet(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	ctx := context.Background()
	a := newAudit("a1", "acme", "contract Vault { function w() { x.transfer(1); } }", base)
	a.Filename = "Vault.sol"
	require.NoError(t, repo.Save(ctx, a))

	got, err := repo.Get(ctx, "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, a.Report, got.Report)
	assert.Equal(t, a.Counts, got.Counts)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.Equal(t, "Vault.sol", got.Filename)

	// upsert keeps the row and updates the url
	a.ReportURL = "http://minio/r.md"
	require.NoError(t, repo.Save(ctx, a))
	got, err = repo.Get(ctx, "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, "http://minio/r.md", got.ReportURL)

	_, err = repo.Get(ctx, "other", "a1")
	assert.ErrorIs(t, err, domaudits.ErrNotFound)
}

func TestAuditRepository_LatestAndPaginate(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	seed(t, repo)
	ctx := context.Background()

	latest, err := repo.Latest(ctx, "acme", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, domaudits.AuditID("a3"), latest[0].ID)
	assert.Equal(t, domaudits.AuditID("a2"), latest[1].ID)

	page, err := repo.Paginate(ctx, "acme", 2, 2, domaudits.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 1)
	assert.Equal(t, domaudits.AuditID("a1"), page.Data[0].ID)

	byName, err := repo.Paginate(ctx, "acme", 1, 10, domaudits.Filter{ContractName: "vau"})
	require.NoError(t, err)
	require.Len(t, byName.Data, 1)
	assert.Equal(t, "Vault", byName.Data[0].Report.ContractName)

	// a2 has a high finding, a3 only medium
	high, err := repo.Paginate(ctx, "acme", 1, 10, domaudits.Filter{MinSeverity: domaudits.SeverityHigh})
	require.NoError(t, err)
	require.Len(t, high.Data, 1)
	assert.Equal(t, domaudits.AuditID("a2"), high.Data[0].ID)

	medium, err := repo.Count(ctx, "acme", domaudits.Filter{MinSeverity: domaudits.SeverityMedium})
	require.NoError(t, err)
	assert.Equal(t, int64(2), medium)

	none, err := repo.Count(ctx, "acme", domaudits.Filter{ContractName: "50%_off"})
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestAuditRepository_Summary(t *testing.T) {
	repo := NewAuditRepository(openTestDB(t))
	seed(t, repo)
	ctx := context.Background()

	s, err := repo.Summary(ctx, "acme", base.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domaudits.Summary{TotalAudits: 2, High: 1, Medium: 1}, s)

	s, err = repo.Summary(ctx, "nobody", base)
	require.NoError(t, err)
	assert.Equal(t, domaudits.Summary{}, s)
}

func TestReviewRepository(t *testing.T) {
	repo := NewReviewRepository(openTestDB(t))
	ctx := context.Background()

	none, err := repo.LatestByAudit(ctx, "acme", "a1")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Save(ctx, &domreviews.Review{ID: "r1", TenantID: "acme", AuditID: "a1", Model: "m", Result: `{"advice":"x"}`, CreatedAt: base}))
	require.NoError(t, repo.Save(ctx, &domreviews.Review{ID: "r2", TenantID: "acme", AuditID: "a1", Model: "m", Result: "not json", CreatedAt: base.Add(time.Minute)}))

	latest, err := repo.LatestByAudit(ctx, "acme", "a1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domreviews.ReviewID("r2"), latest.ID)
	assert.JSONEq(t, `{"raw":"not json"}`, latest.Result)

	list, err := repo.Paginate(ctx, "acme", 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domreviews.ReviewID("r2"), list[0].ID)

	list, err = repo.Paginate(ctx, "acme", 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domreviews.ReviewID("r1"), list[0].ID)
	assert.True(t, base.Equal(list[0].CreatedAt))
}
