package model

// Confidence is the trust level attached to a proposed or validated change.
// Ordered low < medium < high < flagged; flagged is a hard signal that
// contradiction outweighed support, not merely low trust.
type Confidence string

const (
	ConfidenceLow     Confidence = "low"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceHigh    Confidence = "high"
	ConfidenceFlagged Confidence = "flagged"
)

var confidenceRank = map[Confidence]int{
	ConfidenceLow:     0,
	ConfidenceMedium:  1,
	ConfidenceHigh:    2,
	ConfidenceFlagged: 3,
}

// Rank returns the position of c in the confidence order. Unknown values
// rank below low.
func (c Confidence) Rank() int {
	if r, ok := confidenceRank[c]; ok {
		return r
	}
	return -1
}

// ProposedChange is a single candidate update to the canonical record,
// produced by upstream extraction and consumed once by corroboration.
type ProposedChange struct {
	SubjectID   string     `json:"subject_id"`
	Field       string     `json:"field"`
	OldValue    any        `json:"old_value,omitempty"`
	NewValue    any        `json:"new_value"`
	Confidence  Confidence `json:"confidence"`
	SourceType  string     `json:"source_type"`
	SourceURL   string     `json:"source_url,omitempty"`
	Methodology string     `json:"methodology,omitempty"`
}

// ValidatedChange is a ProposedChange after cross-source corroboration.
// Persisted keyed by (subject_id, field).
type ValidatedChange struct {
	ProposedChange
	ValidatedConfidence   Confidence       `json:"validated_confidence"`
	SupportingEvidence    []EvidenceRecord `json:"supporting_evidence,omitempty"`
	ContradictingEvidence []EvidenceRecord `json:"contradicting_evidence,omitempty"`
	Severity              Severity         `json:"severity"`
	Notes                 []string         `json:"notes,omitempty"`
}
