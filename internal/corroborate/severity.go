package corroborate

import "github.com/marquee-data/marquee-cli/internal/model"

// Severity buckets for absolute financial quantities, as relative percent
// change against the prior value.
const (
	moneyCriticalPct = 0.50
	moneyHighPct     = 0.30
	moneyMediumPct   = 0.15
)

// Severity buckets for ranged percentage estimates, as midpoint distance
// in percentage points.
const (
	rangeCriticalPts = 25.0
	rangeHighPts     = 15.0
	rangeMediumPts   = 7.5
)

// ComputeSeverity grades how materially the proposed value disagrees with
// the previously accepted one, using field-type-specific rules driven by
// the value kinds.
func ComputeSeverity(oldValue, newValue any) model.Severity {
	// A transition to or from an empty baseline usually signals a
	// data-entry class error, not a real revision.
	if oldValue == nil || newValue == nil {
		if oldValue == nil && newValue == nil {
			return model.SeverityLow
		}
		return model.SeverityCritical
	}

	if ob, ok := oldValue.(bool); ok {
		if nb, ok2 := newValue.(bool); ok2 {
			if ob == nb {
				return model.SeverityLow
			}
			return model.SeverityCritical
		}
		return model.SeverityCritical
	}

	if orng, ok := asRange(oldValue); ok {
		nrng, ok2 := asRange(newValue)
		if !ok2 {
			return model.SeverityCritical
		}
		dist := abs(orng.Midpoint() - nrng.Midpoint())
		switch {
		case dist > rangeCriticalPts:
			return model.SeverityCritical
		case dist > rangeHighPts:
			return model.SeverityHigh
		case dist > rangeMediumPts:
			return model.SeverityMedium
		default:
			return model.SeverityLow
		}
	}

	if of, ok := asFloat(oldValue); ok {
		nf, ok2 := asFloat(newValue)
		if !ok2 {
			return model.SeverityCritical
		}
		if of == 0 || nf == 0 {
			if of == nf {
				return model.SeverityLow
			}
			return model.SeverityCritical
		}
		rel := abs(nf-of) / abs(of)
		switch {
		case rel > moneyCriticalPct:
			return model.SeverityCritical
		case rel > moneyHighPct:
			return model.SeverityHigh
		case rel > moneyMediumPct:
			return model.SeverityMedium
		default:
			return model.SeverityLow
		}
	}

	if os, ok := asString(oldValue); ok {
		ns, ok2 := asString(newValue)
		if !ok2 {
			return model.SeverityCritical
		}
		if match, _ := ValuesMatch(os, ns); match {
			return model.SeverityLow
		}
		// Categorical change.
		return model.SeverityHigh
	}

	// Unrecognized kinds: treat as a categorical change.
	return model.SeverityHigh
}
