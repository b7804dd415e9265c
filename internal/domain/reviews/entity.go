package reviews

import "time"

// ReviewID identifier type
type ReviewID string

// Review is an AI second opinion on an audited contract, stored for auditing and retrieval.
type Review struct {
	ID        ReviewID  `json:"id"`
	TenantID  string    `json:"tenant_id"`
	AuditID   string    `json:"audit_id"`
	Model     string    `json:"model,omitempty"`
	Result    string    `json:"result"` // JSON string from AI
	CreatedAt time.Time `json:"created_at"`
}
