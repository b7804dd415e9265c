package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/automaton-sol/internal/domain/audits"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      atomic.Uint64
	RequestsInProgress atomic.Int64
	RequestsSuccess    atomic.Uint64
	RequestsFailed     atomic.Uint64
	AuditsTotal        atomic.Uint64
	AuditsFailed       atomic.Uint64
	ReviewsTotal       atomic.Uint64
	FindingsCritical   atomic.Uint64
	FindingsHigh       atomic.Uint64
	FindingsMedium     atomic.Uint64
	FindingsLow        atomic.Uint64
	FindingsInfo       atomic.Uint64
	StartTime          time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// RecordAudit counts a finished audit and its findings per severity.
func (m *Metrics) RecordAudit(c audits.SeverityCounts) {
	m.AuditsTotal.Add(1)
	m.FindingsCritical.Add(uint64(c.Critical))
	m.FindingsHigh.Add(uint64(c.High))
	m.FindingsMedium.Add(uint64(c.Medium))
	m.FindingsLow.Add(uint64(c.Low))
	m.FindingsInfo.Add(uint64(c.Info))
}

func (m *Metrics) RecordAuditFailed() { m.AuditsFailed.Add(1) }

func (m *Metrics) RecordReview() { m.ReviewsTotal.Add(1) }

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"requests_total":       m.RequestsTotal.Load(),
		"requests_in_progress": m.RequestsInProgress.Load(),
		"requests_success":     m.RequestsSuccess.Load(),
		"requests_failed":      m.RequestsFailed.Load(),
		"audits_total":         m.AuditsTotal.Load(),
		"audits_failed":        m.AuditsFailed.Load(),
		"reviews_total":        m.ReviewsTotal.Load(),
		"findings": map[string]uint64{
			"critical": m.FindingsCritical.Load(),
			"high":     m.FindingsHigh.Load(),
			"medium":   m.FindingsMedium.Load(),
			"low":      m.FindingsLow.Load(),
			"info":     m.FindingsInfo.Load(),
		},
		"uptime_seconds": time.Since(m.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsTotal.Add(1)
		m.RequestsInProgress.Add(1)
		defer m.RequestsInProgress.Add(-1)

		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			m.RequestsSuccess.Add(1)
		} else {
			m.RequestsFailed.Add(1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}
