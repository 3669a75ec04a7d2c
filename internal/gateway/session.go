package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// throttleTier is the rate-limit posture toward one provider. Tiers only
// ever escalate within a session: providers that have started throttling
// rarely stop.
type throttleTier int

const (
	tierNormal throttleTier = iota
	tierCautious
	tierSlow
)

func (t throttleTier) String() string {
	switch t {
	case tierNormal:
		return "normal"
	case tierCautious:
		return "cautious"
	case tierSlow:
		return "slow"
	default:
		return "unknown"
	}
}

const (
	cautiousAfterHits = 3
	slowAfterHits     = 6

	cautiousMultiplier = 3
	slowMultiplier     = 6

	callWindow = 5 * time.Minute
)

// session holds per-provider mutable state: the sliding window of recent
// calls, the cumulative rate-limit count driving the ratchet, and the
// down/cooldown flag. Owned exclusively by the gateway; all access goes
// through the mutex since the window and down flag are read-and-updated
// together.
type session struct {
	mu sync.Mutex

	kind      Kind
	baseDelay time.Duration
	limiter   *rate.Limiter

	recent        []time.Time
	rateLimitHits int
	tier          throttleTier

	down     bool
	retryAt  time.Time
	cooldown time.Duration

	calls int

	nowFunc func() time.Time
}

func newSession(kind Kind, baseDelay, cooldown time.Duration) *session {
	return &session{
		kind:      kind,
		baseDelay: baseDelay,
		limiter:   rate.NewLimiter(rate.Every(baseDelay), 1),
		cooldown:  cooldown,
		nowFunc:   time.Now,
	}
}

// wait blocks until the minimum inter-call delay has elapsed, then records
// the call in the sliding window.
func (s *session) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	s.calls++
	s.recent = append(s.recent, now)
	cutoff := now.Add(-callWindow)
	for len(s.recent) > 0 && s.recent[0].Before(cutoff) {
		s.recent = s.recent[1:]
	}
	return nil
}

// noteRateLimit bumps the cumulative rejection count and escalates the
// throttle tier when thresholds are crossed. The enforced delay never
// decreases within a session.
func (s *session) noteRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rateLimitHits++

	next := s.tier
	switch {
	case s.rateLimitHits >= slowAfterHits:
		next = tierSlow
	case s.rateLimitHits >= cautiousAfterHits:
		next = tierCautious
	}
	if next <= s.tier {
		return
	}
	s.tier = next

	delay := s.baseDelay
	switch next {
	case tierCautious:
		delay = s.baseDelay * cautiousMultiplier
	case tierSlow:
		delay = s.baseDelay * slowMultiplier
	}
	s.limiter.SetLimit(rate.Every(delay))

	zap.L().Warn("provider throttle tier escalated",
		zap.Stringer("provider", s.kind),
		zap.Stringer("tier", next),
		zap.Int("rate_limit_hits", s.rateLimitHits),
		zap.Duration("min_delay", delay),
	)
}

// minDelay returns the currently enforced inter-call delay.
func (s *session) minDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := s.limiter.Limit()
	if limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}

// markDown opens the circuit: the provider is skipped until the cooldown
// elapses, then exactly one probe call is let through.
func (s *session) markDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = true
	s.retryAt = s.nowFunc().Add(s.cooldown)
	zap.L().Warn("provider marked down",
		zap.Stringer("provider", s.kind),
		zap.Time("retry_at", s.retryAt),
	)
}

// allow reports whether a call may proceed. While down, it returns false
// until the cooldown elapses; the first call after that is admitted as a
// probe, and the cooldown restarts so concurrent flows cannot pile on.
func (s *session) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.down {
		return true
	}
	now := s.nowFunc()
	if now.Before(s.retryAt) {
		return false
	}
	s.retryAt = now.Add(s.cooldown)
	return true
}

// restore closes the circuit after a successful call. The throttle tier is
// deliberately untouched.
func (s *session) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		zap.L().Info("provider restored", zap.Stringer("provider", s.kind))
	}
	s.down = false
}

// stats returns a snapshot for observability.
func (s *session) stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		Provider:      s.kind.String(),
		Calls:         s.calls,
		RecentCalls:   len(s.recent),
		RateLimitHits: s.rateLimitHits,
		Tier:          s.tier.String(),
		Down:          s.down,
	}
}

// reset clears all mutable state, for test isolation and configured reset
// boundaries.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = nil
	s.rateLimitHits = 0
	s.tier = tierNormal
	s.down = false
	s.retryAt = time.Time{}
	s.calls = 0
	s.limiter = rate.NewLimiter(rate.Every(s.baseDelay), 1)
}

// SessionStats is a point-in-time view of one provider session.
type SessionStats struct {
	Provider      string `json:"provider"`
	Calls         int    `json:"calls"`
	RecentCalls   int    `json:"recent_calls"`
	RateLimitHits int    `json:"rate_limit_hits"`
	Tier          string `json:"tier"`
	Down          bool   `json:"down"`
}
