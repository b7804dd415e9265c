package reviews

import "context"

// Repository port for persisting and querying reviews
type Repository interface {
	Save(ctx context.Context, r *Review) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Review, error)
	LatestByAudit(ctx context.Context, tenant string, auditID string) (*Review, error)
}
