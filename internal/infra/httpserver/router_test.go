package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-sol/internal/application"
	appaudits "github.com/bryanwahyu/automaton-sol/internal/application/audits"
	appreviews "github.com/bryanwahyu/automaton-sol/internal/application/reviews"
	domai "github.com/bryanwahyu/automaton-sol/internal/domain/ai"
	"github.com/bryanwahyu/automaton-sol/internal/infra/db/sqlite"
	"github.com/bryanwahyu/automaton-sol/internal/middleware"
)

const vault = `contract Vault {
  function withdraw(uint256 amount) public {
    payable(msg.sender).transfer(amount);
  }
}`

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type stubAI struct{ err error }

func (s stubAI) Review(context.Context, string, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return `{"contract":"Vault","advice":"add a reentrancy guard"}`, nil
}

func (stubAI) ModelName() string { return "stub" }

type fixture struct {
	handler http.Handler
	metrics *middleware.Metrics
}

func newFixture(t *testing.T, client domai.Client) fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Connect(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(ctx, db))

	clock := application.FixedClock{T: fixedNow}
	auditSvc := &appaudits.Service{Repo: sqlite.NewAuditRepository(db), Clock: clock}
	var reviewSvc *appreviews.Service
	if client != nil {
		reviewSvc = appreviews.NewService(client, sqlite.NewReviewRepository(db), auditSvc, clock, nil)
	}

	m := middleware.NewMetrics()
	h := NewRouter(Deps{
		Audits:  auditSvc,
		Reviews: reviewSvc,
		Metrics: m,
		Health:  map[string]middleware.HealthChecker{"db": &middleware.DatabaseHealthChecker{DB: db}},
		APIKeys: map[string]string{"acme": "k-acme", "beta": "k-beta"},
	})
	return fixture{handler: h, metrics: m}
}

func (f fixture) do(t *testing.T, method, path, key string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func (f fixture) submit(t *testing.T, source string) appaudits.SubmitResult {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/v1/acme/audits", "k-acme",
		jsonBody(t, map[string]string{"filename": "Vault.sol", "source": source}), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res appaudits.SubmitResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil, "").Code)
	rec := f.do(t, http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/metrics", "", nil, "").Code)
}

func TestPreview(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/audits/preview", "k-acme", jsonBody(t, map[string]string{"source": vault}), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Report struct {
			ContractName string `json:"contractName"`
		} `json:"report"`
		Counts struct {
			High int `json:"high"`
		} `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Vault", out.Report.ContractName)
	assert.Equal(t, 1, out.Counts.High)

	rec = f.do(t, http.MethodPost, "/v1/audits/preview", "k-acme", jsonBody(t, map[string]string{"source": "contract X {}"}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/audits/preview", "k-acme", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitGetAndReport(t *testing.T) {
	f := newFixture(t, nil)
	res := f.submit(t, vault)
	assert.Equal(t, "Vault", res.Report.ContractName)
	assert.Equal(t, 1, res.Counts.High)
	assert.EqualValues(t, 1, f.metrics.AuditsTotal.Load())
	assert.EqualValues(t, 1, f.metrics.FindingsHigh.Load())

	rec := f.do(t, http.MethodGet, "/v1/acme/audits/"+res.ID, "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"contractName":"Vault"`)

	rec = f.do(t, http.MethodGet, "/v1/acme/audits/"+res.ID+"/report.md", "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Vault_audit_report.md"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("- Overall: %.1f/10", res.Overall))
	assert.Contains(t, rec.Body.String(), "2026-05-04")

	// other tenant cannot see it
	rec = f.do(t, http.MethodGet, "/v1/beta/audits/"+res.ID, "k-beta", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/acme/audits/not-a-uuid", "k-acme", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitRejectsBadInput(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/v1/acme/audits", "k-acme",
		jsonBody(t, map[string]string{"filename": "notes.txt", "source": vault}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/acme/audits", "k-acme",
		jsonBody(t, map[string]string{"source": "   short   "}), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 2, f.metrics.AuditsFailed.Load())
}

func TestAuthAndTenant(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/acme/audits", "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/acme/audits", "wrong", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/v1/acme/audits", "k-beta", nil, "").Code)
}

func multipartBody(t *testing.T, filename, content string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUpload(t *testing.T) {
	f := newFixture(t, nil)

	body, ct := multipartBody(t, "Vault.sol", vault)
	rec := f.do(t, http.MethodPost, "/v1/acme/audits/upload", "k-acme", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Location"))

	body, ct = multipartBody(t, "Vault.txt", vault)
	rec = f.do(t, http.MethodPost, "/v1/acme/audits/upload", "k-acme", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ".sol")

	rec = f.do(t, http.MethodPost, "/v1/acme/audits/upload", "k-acme", []byte("x"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLatestSummary(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, vault)
	f.submit(t, "/** documented */ contract Quiet { uint256 x; }")

	rec := f.do(t, http.MethodGet, "/v1/acme/audits?severity=high", "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total int64 `json:"totalItems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/v1/acme/audits?severity=urgent", "k-acme", nil, "").Code)

	rec = f.do(t, http.MethodGet, "/v1/acme/audits/latest?limit=1", "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Len(t, latest, 1)

	rec = f.do(t, http.MethodGet, "/v1/beta/audits/latest", "k-beta", nil, "")
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/acme/summary?days=3", "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum struct {
		Days    int `json:"days"`
		Summary struct {
			TotalAudits int `json:"total_audits"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Days)
	assert.Equal(t, 2, sum.Summary.TotalAudits)
}

func TestReviewDisabled(t *testing.T) {
	f := newFixture(t, nil)
	res := f.submit(t, vault)
	rec := f.do(t, http.MethodPost, "/v1/acme/audits/"+res.ID+"/review", "k-acme", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/v1/acme/reviews", "k-acme", nil, "").Code)
}

func TestReview(t *testing.T) {
	f := newFixture(t, stubAI{})
	res := f.submit(t, vault)

	rec := f.do(t, http.MethodGet, "/v1/acme/audits/"+res.ID+"/review", "k-acme", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/acme/audits/"+res.ID+"/review", "k-acme", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "reentrancy guard")

	rec = f.do(t, http.MethodGet, "/v1/acme/audits/"+res.ID+"/review", "k-acme", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/acme/reviews", "k-acme", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), `"audit_id"`))
}

func TestReviewQuota(t *testing.T) {
	f := newFixture(t, stubAI{err: fmt.Errorf("%w: 429", domai.ErrQuotaExceeded)})
	res := f.submit(t, vault)
	rec := f.do(t, http.MethodPost, "/v1/acme/audits/"+res.ID+"/review", "k-acme", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
