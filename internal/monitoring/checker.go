package monitoring

import "fmt"

// Alert is one threshold breach found in a snapshot.
type Alert struct {
	Level   string `json:"level"` // "warn" or "critical"
	Message string `json:"message"`
}

// Thresholds configures the health checks. Zero values disable a check.
type Thresholds struct {
	MaxFetchFailures  int `yaml:"max_fetch_failures" mapstructure:"max_fetch_failures"`
	MaxBlockedChanges int `yaml:"max_blocked_changes" mapstructure:"max_blocked_changes"`
	MaxFlaggedChanges int `yaml:"max_flagged_changes" mapstructure:"max_flagged_changes"`
}

// DefaultThresholds returns the production check thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFetchFailures:  20,
		MaxBlockedChanges: 5,
		MaxFlaggedChanges: 10,
	}
}

// Check evaluates a snapshot against the thresholds.
func Check(snap *MetricsSnapshot, t Thresholds) []Alert {
	var alerts []Alert

	if t.MaxFetchFailures > 0 && snap.FetchFailures > t.MaxFetchFailures {
		alerts = append(alerts, Alert{
			Level:   "critical",
			Message: fmt.Sprintf("%d fetch failures in the last %dh (threshold %d)", snap.FetchFailures, snap.LookbackHours, t.MaxFetchFailures),
		})
	}
	if t.MaxBlockedChanges > 0 && snap.BlockedChanges > t.MaxBlockedChanges {
		alerts = append(alerts, Alert{
			Level:   "warn",
			Message: fmt.Sprintf("%d blocked changes in the last %dh (threshold %d)", snap.BlockedChanges, snap.LookbackHours, t.MaxBlockedChanges),
		})
	}
	if t.MaxFlaggedChanges > 0 && snap.FlaggedChanges > t.MaxFlaggedChanges {
		alerts = append(alerts, Alert{
			Level:   "warn",
			Message: fmt.Sprintf("%d flagged changes in the last %dh (threshold %d)", snap.FlaggedChanges, snap.LookbackHours, t.MaxFlaggedChanges),
		})
	}

	for _, p := range snap.Providers {
		if p.Down {
			alerts = append(alerts, Alert{
				Level:   "warn",
				Message: fmt.Sprintf("provider %s is down", p.Provider),
			})
		}
	}

	return alerts
}
