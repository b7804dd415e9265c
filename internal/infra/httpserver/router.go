package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appaudits "github.com/bryanwahyu/automaton-sol/internal/application/audits"
	appreviews "github.com/bryanwahyu/automaton-sol/internal/application/reviews"
	domai "github.com/bryanwahyu/automaton-sol/internal/domain/ai"
	domain "github.com/bryanwahyu/automaton-sol/internal/domain/audits"
	"github.com/bryanwahyu/automaton-sol/internal/middleware"
)

// Deps bundles what the router serves. Reviews may be nil when AI is not configured.
type Deps struct {
	Audits      *appaudits.Service
	Reviews     *appreviews.Service
	Metrics     *middleware.Metrics
	Limiter     *middleware.RateLimiter
	Health      map[string]middleware.HealthChecker
	APIKeys     map[string]string
	CORSOrigins []string
	Log         *zap.Logger
}

type Router struct {
	audits  *appaudits.Service
	reviews *appreviews.Service
	metrics *middleware.Metrics
	log     *zap.Logger
}

// errBadRequest marks malformed requests (bad JSON, bad params).
type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return errBadRequest{msg: fmt.Sprintf(format, args...)}
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = middleware.NewMetrics()
	}
	r := &Router{audits: d.Audits, reviews: d.Reviews, metrics: d.Metrics, log: d.Log}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(d.Log))
	mux.Use(d.Metrics.Middleware)
	mux.Use(middleware.APIKeyAuth(d.APIKeys))
	if d.Limiter != nil {
		mux.Use(d.Limiter.Middleware)
	}

	mux.Get("/health", middleware.LivenessHandler)
	mux.Get("/healthz", middleware.HealthHandler(d.Health))
	mux.Get("/metrics", d.Metrics.Handler)

	mux.Post("/v1/audits/preview", r.wrap(r.handlePreview))

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireTenant(func(req *http.Request) string {
			return chi.URLParam(req, "tenant")
		}))
		rt.Post("/audits", r.wrap(r.handleSubmit))
		rt.Post("/audits/upload", r.wrap(r.handleUpload))
		rt.Get("/audits", r.wrap(r.handleList))
		rt.Get("/audits/latest", r.wrap(r.handleLatest))
		rt.Get("/audits/{id}", r.wrap(r.handleGet))
		rt.Get("/audits/{id}/report.md", r.wrap(r.handleMarkdown))
		rt.Post("/audits/{id}/review", r.wrap(r.handleReview))
		rt.Get("/audits/{id}/review", r.wrap(r.handleLatestReview))
		rt.Get("/reviews", r.wrap(r.handleReviewList))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var bad errBadRequest
		switch {
		case errors.As(err, &bad), domain.IsValidation(err):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.Is(err, domai.ErrDisabled):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			r.log.Error("handler failed",
				zap.String("path", req.URL.Path),
				zap.String("request_id", chimw.GetReqID(req.Context())),
				zap.Error(err),
			)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type sourceBody struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

func decodeSource(w http.ResponseWriter, req *http.Request) (sourceBody, error) {
	var body sourceBody
	// JSON escaping can inflate the body, beri ruang 2x
	req.Body = http.MaxBytesReader(w, req.Body, 2*domain.MaxSourceBytes)
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return body, domain.ErrSourceTooLarge
		}
		return body, badRequest("invalid JSON body: %v", err)
	}
	body.Filename = middleware.SanitizeString(body.Filename)
	return body, nil
}

// POST /v1/audits/preview
// Body: {"source": "..."}
func (r *Router) handlePreview(w http.ResponseWriter, req *http.Request) error {
	body, err := decodeSource(w, req)
	if err != nil {
		return err
	}
	report, err := r.audits.Preview(appaudits.SubmitCommand{Filename: body.Filename, Source: body.Source})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"report":  report,
		"counts":  report.Counts(),
		"overall": report.Metrics.Overall(),
	})
}

func (r *Router) submit(w http.ResponseWriter, req *http.Request, cmd appaudits.SubmitCommand) error {
	res, err := r.audits.Submit(req.Context(), cmd)
	if err != nil {
		r.metrics.RecordAuditFailed()
		return err
	}
	r.metrics.RecordAudit(res.Counts)
	w.Header().Set("Location", fmt.Sprintf("/v1/%s/audits/%s", cmd.TenantID, res.ID))
	return writeJSON(w, http.StatusCreated, res)
}

// POST /v1/{tenant}/audits
// Body: {"filename": "Vault.sol", "source": "..."}
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	body, err := decodeSource(w, req)
	if err != nil {
		return err
	}
	return r.submit(w, req, appaudits.SubmitCommand{
		TenantID: chi.URLParam(req, "tenant"),
		Filename: body.Filename,
		Source:   body.Source,
	})
}

// POST /v1/{tenant}/audits/upload (multipart, field "file")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, domain.MaxSourceBytes+64<<10)
	file, header, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.ErrSourceTooLarge
		}
		return badRequest("missing file field: %v", err)
	}
	defer file.Close()

	if header.Size > domain.MaxSourceBytes {
		return domain.ErrSourceTooLarge
	}
	name := middleware.SanitizeString(header.Filename)
	if name == "" {
		return domain.ErrNotSolidityFile
	}
	if err := domain.ValidateFilename(name); err != nil {
		return err
	}

	data, err := io.ReadAll(io.LimitReader(file, domain.MaxSourceBytes+1))
	if err != nil {
		return err
	}
	return r.submit(w, req, appaudits.SubmitCommand{
		TenantID: chi.URLParam(req, "tenant"),
		Filename: name,
		Source:   string(data),
	})
}

func auditID(req *http.Request) (domain.AuditID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAuditID(id); err != nil {
		return "", badRequest("%v", err)
	}
	return domain.AuditID(id), nil
}

func queryInt(req *http.Request, key string) int {
	v, _ := strconv.Atoi(req.URL.Query().Get(key))
	return v
}

// GET /v1/{tenant}/audits?page=&page_size=&contract=&severity=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()
	sev, err := middleware.ValidateSeverity(q.Get("severity"))
	if err != nil {
		return badRequest("%v", err)
	}
	f := domain.Filter{
		ContractName: middleware.SanitizeString(q.Get("contract")),
		MinSeverity:  sev,
	}
	page := middleware.ValidatePage(queryInt(req, "page"))
	size := middleware.ValidateLimit(queryInt(req, "page_size"))

	res, err := r.audits.Paginate(req.Context(), tenant, page, size, f)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/{tenant}/audits/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit := middleware.ValidateLimit(queryInt(req, "limit"))

	list, err := r.audits.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Audit{}
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/audits/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	a, err := r.audits.Get(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"audit":   a,
		"overall": a.Report.Metrics.Overall(),
	})
}

// GET /v1/{tenant}/audits/{id}/report.md
func (r *Router) handleMarkdown(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	filename, body, err := r.audits.Markdown(req.Context(), chi.URLParam(req, "tenant"), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, err = io.WriteString(w, body)
	return err
}

// POST /v1/{tenant}/audits/{id}/review
func (r *Router) handleReview(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	rv, err := r.reviews.Review(req.Context(), chi.URLParam(req, "tenant"), string(id))
	if err != nil {
		return err
	}
	r.metrics.RecordReview()
	return writeJSON(w, http.StatusCreated, rv)
}

// GET /v1/{tenant}/audits/{id}/review
func (r *Router) handleLatestReview(w http.ResponseWriter, req *http.Request) error {
	id, err := auditID(req)
	if err != nil {
		return err
	}
	rv, err := r.reviews.LatestForAudit(req.Context(), chi.URLParam(req, "tenant"), string(id))
	if err != nil {
		return err
	}
	if rv == nil {
		return domain.ErrNotFound
	}
	return writeJSON(w, http.StatusOK, rv)
}

// GET /v1/{tenant}/reviews?page=&page_size=
func (r *Router) handleReviewList(w http.ResponseWriter, req *http.Request) error {
	page := middleware.ValidatePage(queryInt(req, "page"))
	size := middleware.ValidateLimit(queryInt(req, "page_size"))

	list, err := r.reviews.List(req.Context(), chi.URLParam(req, "tenant"), page, size)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days := middleware.ValidateDays(queryInt(req, "days"))

	summary, err := r.audits.Summary(req.Context(), chi.URLParam(req, "tenant"), days)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"days":    days,
		"summary": summary,
	})
}
