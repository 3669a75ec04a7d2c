// Package monitoring gathers point-in-time health metrics from the audit
// store and the fetch gateway for the status command and server.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/gateway"
	"github.com/marquee-data/marquee-cli/internal/model"
	"github.com/marquee-data/marquee-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of pipeline health.
type MetricsSnapshot struct {
	// Audit outcomes within the lookback window.
	FetchFailures   int `json:"fetch_failures"`
	InvalidContent  int `json:"invalid_content"`
	FlaggedChanges  int `json:"flagged_changes"`
	BlockedChanges  int `json:"blocked_changes"`
	OverridesUsed   int `json:"overrides_used"`
	AuditNotesTotal int `json:"audit_notes_total"`

	// Stored changes by validated confidence (all time).
	ChangesFlagged int `json:"changes_flagged"`
	ChangesHigh    int `json:"changes_high"`

	// Per-provider gateway state at collection time.
	Providers []gateway.SessionStats `json:"providers,omitempty"`
	Fallbacks int                    `json:"fallbacks"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// GatewayStats abstracts the gateway methods the collector reads.
type GatewayStats interface {
	SessionStats() []gateway.SessionStats
	Counters() gateway.Counters
}

// Collector gathers metrics from the store and the gateway.
type Collector struct {
	store store.Store
	gw    GatewayStats
}

// NewCollector creates a metrics collector. gw may be nil when no gateway is
// live (e.g. the status command inspecting a store offline).
func NewCollector(st store.Store, gw GatewayStats) *Collector {
	return &Collector{store: st, gw: gw}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	notes, err := c.store.ListAudit(ctx, store.AuditFilter{Since: cutoff, Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list audit")
	}
	snap.AuditNotesTotal = len(notes)
	for _, n := range notes {
		switch n.Kind {
		case model.AuditFetchFailed:
			snap.FetchFailures++
		case model.AuditInvalidContent:
			snap.InvalidContent++
		case model.AuditFlaggedChange:
			snap.FlaggedChanges++
		case model.AuditBlockedChange:
			snap.BlockedChanges++
		case model.AuditOverrideUsed:
			snap.OverridesUsed++
		}
	}

	flagged, err := c.store.ListChanges(ctx, store.ChangeFilter{Confidence: model.ConfidenceFlagged, Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list flagged changes")
	}
	snap.ChangesFlagged = len(flagged)

	high, err := c.store.ListChanges(ctx, store.ChangeFilter{Confidence: model.ConfidenceHigh, Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list high-confidence changes")
	}
	snap.ChangesHigh = len(high)

	if c.gw != nil {
		snap.Providers = c.gw.SessionStats()
		snap.Fallbacks = c.gw.Counters().Fallbacks
	}

	return snap, nil
}
