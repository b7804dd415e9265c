package audits

import (
	"context"
	"time"
)

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *Audit) error
	Get(ctx context.Context, tenant string, id AuditID) (*Audit, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Audit, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int, f Filter) (PaginatedResult, error)
	Count(ctx context.Context, tenant string, f Filter) (int64, error)
	Summary(ctx context.Context, tenant string, since time.Time) (Summary, error)
}

// ReportStore port (interface untuk penyimpanan report markdown)
type ReportStore interface {
	PutReport(ctx context.Context, key string, body []byte) (string, error)
}
