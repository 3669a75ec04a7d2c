// Package guardian is the final gate before a validated change reaches the
// canonical record: it refuses severe rewrites of fields a human has
// already verified.
package guardian

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/model"
)

// Override names a (subject, field) pair exempted from blocking. Entries
// come from operator configuration and every use is logged.
type Override struct {
	SubjectID string `json:"subject_id" mapstructure:"subject_id"`
	Field     string `json:"field" mapstructure:"field"`
	Reason    string `json:"reason" mapstructure:"reason"`
}

// Decision is the guardian's verdict for one change. A blocked change is a
// normal outcome, not an error: the caller records it and moves on.
type Decision struct {
	Blocked  bool           `json:"blocked"`
	Severity model.Severity `json:"severity"`
	Reason   string         `json:"reason"`
	Override *Override      `json:"override,omitempty"`
}

// Guardian blocks high and critical severity changes to verified fields
// unless an explicit override covers the pair.
type Guardian struct {
	overrides []Override
}

// New creates a Guardian with the configured override allow-list.
func New(overrides []Override) *Guardian {
	return &Guardian{overrides: overrides}
}

// Guard evaluates one validated change against the subject's verification
// record. verification may be nil when the subject has never been verified.
func (g *Guardian) Guard(change model.ValidatedChange, verification *model.VerificationRecord) Decision {
	d := Decision{Severity: change.Severity}

	if !change.Severity.AtLeast(model.SeverityHigh) {
		d.Reason = fmt.Sprintf("severity %s below blocking threshold", change.Severity)
		return d
	}
	if !verification.Covers(change.Field) {
		d.Reason = fmt.Sprintf("field %q not under verification", change.Field)
		return d
	}

	if ov, ok := g.override(change.SubjectID, change.Field); ok {
		d.Override = &ov
		d.Reason = fmt.Sprintf("override in effect: %s", ov.Reason)
		zap.L().Warn("verified-field override exercised",
			zap.String("subject", change.SubjectID),
			zap.String("field", change.Field),
			zap.String("severity", string(change.Severity)),
			zap.String("reason", ov.Reason),
		)
		return d
	}

	d.Blocked = true
	d.Reason = fmt.Sprintf("%s severity change to verified field %q", change.Severity, change.Field)
	zap.L().Info("change blocked",
		zap.String("subject", change.SubjectID),
		zap.String("field", change.Field),
		zap.String("severity", string(change.Severity)),
	)
	return d
}

func (g *Guardian) override(subject, field string) (Override, bool) {
	i := slices.IndexFunc(g.overrides, func(ov Override) bool {
		return ov.SubjectID == subject && ov.Field == field
	})
	if i < 0 {
		return Override{}, false
	}
	return g.overrides[i], true
}
