package guardian

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-data/marquee-cli/internal/model"
)

func validated(subject, field string, sev model.Severity) model.ValidatedChange {
	return model.ValidatedChange{
		ProposedChange: model.ProposedChange{
			SubjectID:  subject,
			Field:      field,
			Confidence: model.ConfidenceMedium,
		},
		ValidatedConfidence: model.ConfidenceMedium,
		Severity:            sev,
	}
}

func verification(subject string, fields ...string) *model.VerificationRecord {
	return &model.VerificationRecord{
		SubjectID:      subject,
		VerifiedFields: fields,
		VerifiedDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGuardBlocksSevereChangeToVerifiedField(t *testing.T) {
	g := New(nil)
	ch := validated("hamilton", "capitalization", model.SeverityCritical)

	d := g.Guard(ch, verification("hamilton", "capitalization", "recoupment"))

	assert.True(t, d.Blocked)
	assert.Equal(t, model.SeverityCritical, d.Severity)
	assert.Contains(t, d.Reason, "verified field")
}

func TestGuardAllowsSevereChangeToUnverifiedField(t *testing.T) {
	g := New(nil)
	ch := validated("hamilton", "weekly_gross", model.SeverityCritical)

	d := g.Guard(ch, verification("hamilton", "capitalization"))

	assert.False(t, d.Blocked)
}

func TestGuardAllowsLowSeverityOnVerifiedField(t *testing.T) {
	g := New(nil)

	for _, sev := range []model.Severity{model.SeverityLow, model.SeverityMedium} {
		ch := validated("hamilton", "capitalization", sev)
		d := g.Guard(ch, verification("hamilton", "capitalization"))
		assert.False(t, d.Blocked, "severity %s must pass", sev)
	}
	for _, sev := range []model.Severity{model.SeverityHigh, model.SeverityCritical} {
		ch := validated("hamilton", "capitalization", sev)
		d := g.Guard(ch, verification("hamilton", "capitalization"))
		assert.True(t, d.Blocked, "severity %s must block", sev)
	}
}

func TestGuardNilVerificationRecord(t *testing.T) {
	g := New(nil)
	ch := validated("hamilton", "capitalization", model.SeverityCritical)

	d := g.Guard(ch, nil)

	assert.False(t, d.Blocked, "subjects with no verification record are never blocked")
}

func TestGuardOverrideAllowsAndIsReported(t *testing.T) {
	g := New([]Override{
		{SubjectID: "hamilton", Field: "capitalization", Reason: "restatement confirmed with producers"},
	})
	ch := validated("hamilton", "capitalization", model.SeverityCritical)

	d := g.Guard(ch, verification("hamilton", "capitalization"))

	assert.False(t, d.Blocked)
	require.NotNil(t, d.Override)
	assert.Equal(t, "restatement confirmed with producers", d.Override.Reason)
}

func TestGuardOverrideIsExactPairMatch(t *testing.T) {
	g := New([]Override{
		{SubjectID: "hamilton", Field: "capitalization", Reason: "restatement"},
	})

	d := g.Guard(validated("wicked", "capitalization", model.SeverityCritical),
		verification("wicked", "capitalization"))
	assert.True(t, d.Blocked, "override for another subject must not apply")

	d = g.Guard(validated("hamilton", "recoupment", model.SeverityHigh),
		verification("hamilton", "recoupment"))
	assert.True(t, d.Blocked, "override for another field must not apply")
}
