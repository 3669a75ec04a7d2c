// Package corroborate cross-references a proposed fact update against
// independently observed values of the same fact, producing a
// credibility-weighted confidence level and a conflict severity.
package corroborate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// Engine validates proposed changes against an evidence pool. Pure and
// stateless: safe for any number of concurrent flows provided the pool is
// snapshot-read.
type Engine struct{}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Validate never fails: absence of evidence is itself a valid low-signal
// outcome, and more contradiction than support is a flagged one — both are
// ordinary return values the caller must branch on.
func (e *Engine) Validate(change model.ProposedChange, pool []model.EvidenceRecord) model.ValidatedChange {
	out := model.ValidatedChange{
		ProposedChange:      change,
		ValidatedConfidence: change.Confidence,
	}

	relevant := e.filter(change, pool)

	for _, ev := range relevant {
		match, comparable := ValuesMatch(change.NewValue, ev.Value)
		if !comparable {
			// Absent or incomparable values are excluded, never counted
			// as contradiction.
			continue
		}
		if match {
			out.SupportingEvidence = append(out.SupportingEvidence, ev)
		} else {
			out.ContradictingEvidence = append(out.ContradictingEvidence, ev)
		}
	}

	supports := len(out.SupportingEvidence)
	contradictions := len(out.ContradictingEvidence)

	// Corroboration is the stronger signal: two independent agreeing
	// sources escalate to high even when dissent also runs deep. The
	// ordering of these two rules is deliberate.
	switch {
	case supports >= 2:
		out.ValidatedConfidence = model.ConfidenceHigh
		out.Notes = append(out.Notes, fmt.Sprintf("%d independent sources corroborate", supports))
	case contradictions > supports:
		out.ValidatedConfidence = model.ConfidenceFlagged
		out.Notes = append(out.Notes, fmt.Sprintf("contradictions (%d) outnumber support (%d)", contradictions, supports))
	default:
		if len(relevant) == 0 {
			out.Notes = append(out.Notes, "no comparable evidence; confidence unchanged")
		}
	}

	out.Severity = ComputeSeverity(change.OldValue, change.NewValue)

	if out.ValidatedConfidence == model.ConfidenceFlagged {
		zap.L().Info("change flagged by corroboration",
			zap.String("subject", change.SubjectID),
			zap.String("field", change.Field),
			zap.Int("supporting", supports),
			zap.Int("contradicting", contradictions),
		)
	}

	return out
}

// filter retains evidence for the same (subject, field), excluding the
// record that is itself the source of the change, and — when the change
// carries a methodology tag — evidence gathered under an incomparable
// methodology.
func (e *Engine) filter(change model.ProposedChange, pool []model.EvidenceRecord) []model.EvidenceRecord {
	var out []model.EvidenceRecord
	for _, ev := range pool {
		if ev.SubjectID != change.SubjectID || ev.Field != change.Field {
			continue
		}
		// No self-corroboration.
		if change.SourceURL != "" && ev.SourceURL == change.SourceURL {
			continue
		}
		if change.Methodology != "" && !MethodologyComparable(change.Methodology, ev.Methodology) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
