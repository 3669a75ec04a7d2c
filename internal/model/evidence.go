package model

import "time"

// EvidenceRecord is one independently observed value for a (subject, field)
// pair. The pool is append-only; records are never mutated after creation.
type EvidenceRecord struct {
	SubjectID   string    `json:"subject_id"`
	Field       string    `json:"field"`
	Value       any       `json:"value"`
	SourceType  string    `json:"source_type"`
	SourceURL   string    `json:"source_url,omitempty"`
	Methodology string    `json:"methodology,omitempty"`
	ObservedAt  time.Time `json:"observed_at,omitzero"`
}

// Range is a paired low/high estimate, e.g. a capitalization range or a
// percentage band. Matched element-wise during corroboration.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Midpoint returns the center of the range.
func (r Range) Midpoint() float64 {
	return (r.Low + r.High) / 2
}
