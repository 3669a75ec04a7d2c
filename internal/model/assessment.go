// Package model defines the shared data types of the ingestion pipeline.
package model

import "time"

// Tier classifies fetched content quality. Invalid is terminal: no
// downstream stage may promote invalid content to a usable tier.
type Tier string

const (
	TierComplete  Tier = "complete"
	TierTruncated Tier = "truncated"
	TierExcerpt   Tier = "excerpt"
	TierStub      Tier = "stub"
	TierInvalid   Tier = "invalid"
)

// Usable reports whether content of this tier may feed extraction.
func (t Tier) Usable() bool {
	return t != TierInvalid
}

// ContentAssessment is the classifier's verdict on one fetched document.
// Persisted keyed by (subject_id, source_url).
type ContentAssessment struct {
	SubjectID  string    `json:"subject_id"`
	SourceURL  string    `json:"source_url,omitempty"`
	Tier       Tier      `json:"tier"`
	WordCount  int       `json:"word_count"`
	Signals    []string  `json:"signals,omitempty"`
	Reason     string    `json:"reason"`
	AssessedAt time.Time `json:"assessed_at"`
}
