// Package store persists the pipeline's audit trail: validated changes,
// content assessments, the evidence pool, verification records, and audit
// notes. Two drivers: SQLite for single-operator use, Postgres for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// ChangeFilter specifies criteria for listing validated changes.
type ChangeFilter struct {
	SubjectID  string           `json:"subject_id,omitempty"`
	Confidence model.Confidence `json:"confidence,omitempty"`
	Severity   model.Severity   `json:"severity,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// AuditFilter specifies criteria for listing audit notes.
type AuditFilter struct {
	SubjectID string          `json:"subject_id,omitempty"`
	Kind      model.AuditKind `json:"kind,omitempty"`
	Since     time.Time       `json:"since,omitzero"`
	Limit     int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
// Changes are keyed by (subject, field), assessments by (subject, source
// URL); saving again replaces the prior record.
type Store interface {
	// Validated changes
	SaveChange(ctx context.Context, change model.ValidatedChange) error
	GetChange(ctx context.Context, subjectID, field string) (*model.ValidatedChange, error)
	ListChanges(ctx context.Context, filter ChangeFilter) ([]model.ValidatedChange, error)

	// Content assessments
	SaveAssessment(ctx context.Context, a model.ContentAssessment) error
	ListAssessments(ctx context.Context, subjectID string) ([]model.ContentAssessment, error)

	// Evidence pool
	AddEvidence(ctx context.Context, ev model.EvidenceRecord) error
	ListEvidence(ctx context.Context, subjectID, field string) ([]model.EvidenceRecord, error)

	// Verification records
	SaveVerification(ctx context.Context, v model.VerificationRecord) error
	GetVerification(ctx context.Context, subjectID string) (*model.VerificationRecord, error)

	// Audit notes
	AppendAudit(ctx context.Context, note model.AuditNote) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]model.AuditNote, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
