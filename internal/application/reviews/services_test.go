package reviews

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	"github.com/bryanwahyu/automaton-sol/internal/domain/ai"
	domaudits "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	domain "github.com/bryanwahyu/automaton-sol/internal/domain/reviews"
)

type stubClient struct {
	gotName   string
	gotSource string
	result    string
	err       error
}

func (c *stubClient) Review(_ context.Context, name, source string) (string, error) {
	c.gotName, c.gotSource = name, source
	return c.result, c.err
}

func (c *stubClient) ModelName() string { return "stub-model" }

type stubAudits map[string]*domaudits.Audit

func (s stubAudits) Get(_ context.Context, tenant string, id domaudits.AuditID) (*domaudits.Audit, error) {
	a, ok := s[string(id)]
	if !ok || a.TenantID != tenant {
		return nil, domaudits.ErrNotFound
	}
	return a, nil
}

type memRepo struct{ saved []*domain.Review }

func (m *memRepo) Save(_ context.Context, r *domain.Review) error {
	m.saved = append(m.saved, r)
	return nil
}

func (m *memRepo) Paginate(_ context.Context, tenant string, _, _ int) ([]*domain.Review, error) {
	var out []*domain.Review
	for _, r := range m.saved {
		if r.TenantID == tenant {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) LatestByAudit(_ context.Context, tenant, auditID string) (*domain.Review, error) {
	for i := len(m.saved) - 1; i >= 0; i-- {
		if r := m.saved[i]; r.TenantID == tenant && r.AuditID == auditID {
			return r, nil
		}
	}
	return nil, nil
}

var now = time.Date(2026, 6, 2, 8, 0, 0, 0, time.UTC)

func fixture() stubAudits {
	return stubAudits{
		"a1": {
			ID:       "a1",
			TenantID: "acme",
			Source:   "contract Token { }",
			Report:   domaudits.Report{ContractName: "Token"},
		},
	}
}

func TestReview_StoresResult(t *testing.T) {
	client := &stubClient{result: `{"findings":[]}`}
	repo := &memRepo{}
	svc := NewService(client, repo, fixture(), application.FixedClock{T: now}, nil)

	r, err := svc.Review(context.Background(), "acme", "a1")
	require.NoError(t, err)

	assert.Equal(t, "Token", client.gotName)
	assert.Equal(t, "contract Token { }", client.gotSource)
	assert.Equal(t, `{"findings":[]}`, r.Result)
	assert.Equal(t, "stub-model", r.Model)
	assert.Equal(t, now, r.CreatedAt)
	require.Len(t, repo.saved, 1)

	latest, err := svc.LatestForAudit(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, r.ID, latest.ID)

	list, err := svc.List(context.Background(), "acme", 1, 20)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestReview_Errors(t *testing.T) {
	repo := &memRepo{}

	svc := NewService(&stubClient{err: ai.ErrQuotaExceeded}, repo, fixture(), application.FixedClock{T: now}, nil)
	_, err := svc.Review(context.Background(), "acme", "a1")
	assert.ErrorIs(t, err, ai.ErrQuotaExceeded)

	_, err = svc.Review(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, domaudits.ErrNotFound)

	_, err = svc.Review(context.Background(), "other", "a1")
	assert.ErrorIs(t, err, domaudits.ErrNotFound)

	assert.Empty(t, repo.saved)
}

func TestReview_Disabled(t *testing.T) {
	var svc *Service
	_, err := svc.Review(context.Background(), "acme", "a1")
	assert.True(t, errors.Is(err, ai.ErrDisabled))

	_, err = svc.List(context.Background(), "acme", 1, 20)
	assert.ErrorIs(t, err, ai.ErrDisabled)

	svc = NewService(nil, &memRepo{}, fixture(), application.FixedClock{T: now}, nil)
	_, err = svc.Review(context.Background(), "acme", "a1")
	assert.ErrorIs(t, err, ai.ErrDisabled)
}
