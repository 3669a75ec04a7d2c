package model

import (
	"slices"
	"time"
)

// VerificationRecord marks fields of a subject that were confirmed through
// a high-trust manual process. Created and cleared only by the curation
// workflow; the pipeline treats it as read-only input.
type VerificationRecord struct {
	SubjectID      string    `json:"subject_id"`
	VerifiedFields []string  `json:"verified_fields"`
	VerifiedDate   time.Time `json:"verified_date"`
	Notes          string    `json:"notes,omitempty"`
}

// Covers reports whether the given field is under verification protection.
func (v *VerificationRecord) Covers(field string) bool {
	if v == nil {
		return false
	}
	return slices.Contains(v.VerifiedFields, field)
}
