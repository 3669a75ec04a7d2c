package model

import "time"

// AuditKind categorizes an audit note.
type AuditKind string

const (
	AuditFetchFailed    AuditKind = "fetch_failed"
	AuditInvalidContent AuditKind = "invalid_content"
	AuditFlaggedChange  AuditKind = "flagged_change"
	AuditBlockedChange  AuditKind = "blocked_change"
	AuditOverrideUsed   AuditKind = "override_used"
)

// AuditNote is a structured record of a rejected or degraded pipeline
// outcome. Outcomes are recorded, never silently dropped.
type AuditNote struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Field     string    `json:"field,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Kind      AuditKind `json:"kind"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
