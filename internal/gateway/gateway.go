package gateway

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marquee-data/marquee-cli/internal/resilience"
)

// Options tunes gateway behavior. Zero values fall back to production
// defaults; tests shrink the delays.
type Options struct {
	// BaseDelay is the normal-tier minimum inter-call delay per provider.
	BaseDelay time.Duration

	// Cooldown is how long a hard-blocked provider stays down before a
	// probe is allowed.
	Cooldown time.Duration

	// RateLimitBackoff is the delay sequence applied when a provider
	// throttles, before giving up on it for the attempt.
	RateLimitBackoff []time.Duration
}

func (o Options) withDefaults() Options {
	if o.BaseDelay <= 0 {
		o.BaseDelay = 2 * time.Second
	}
	if o.Cooldown <= 0 {
		o.Cooldown = 15 * time.Minute
	}
	if o.RateLimitBackoff == nil {
		o.RateLimitBackoff = resilience.RateLimitPolicy().DelaySequence
	}
	return o
}

// Counters accumulates session-scoped observability totals. Resettable for
// test isolation.
type Counters struct {
	Calls      map[string]int `json:"calls"`
	RateLimits map[string]int `json:"rate_limits"`
	Fallbacks  int            `json:"fallbacks"`
}

// Gateway routes fetches across providers in priority order. All mutable
// state lives in per-provider sessions and the counters, both behind
// mutexes, so independent request flows can run concurrently.
type Gateway struct {
	providers []Provider
	sessions  map[Kind]*session
	opts      Options

	mu       sync.Mutex
	counters Counters
}

// New creates a Gateway. Providers are tried in the order given; callers
// list them cheapest first with the rendering provider last.
func New(opts Options, providers ...Provider) *Gateway {
	opts = opts.withDefaults()
	g := &Gateway{
		providers: providers,
		sessions:  make(map[Kind]*session, len(providers)),
		opts:      opts,
	}
	for _, p := range providers {
		g.sessions[p.Kind()] = newSession(p.Kind(), opts.BaseDelay, opts.Cooldown)
	}
	g.resetCounters()
	return g
}

// Fetch tries providers in priority order for the request and returns the
// first success. It fails with *ExhaustedError when every provider and
// every retry is exhausted; it never substitutes stale or default content.
func (g *Gateway) Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error) {
	order := g.order(req)
	if len(order) == 0 {
		return nil, &ExhaustedError{URL: req.URL}
	}

	var lastErr error
	for i, p := range order {
		sess := g.sessions[p.Kind()]

		if !sess.allow() {
			zap.L().Debug("provider down, skipping",
				zap.Stringer("provider", p.Kind()),
				zap.String("url", req.URL),
			)
			continue
		}

		res, err := g.attempt(ctx, p, sess, req.URL)
		if err == nil {
			sess.restore()
			if i > 0 {
				g.noteFallback()
			}
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}

		if resilience.IsHardBlock(err) {
			// Active denial: do not retry this provider, cool it down.
			sess.markDown()
		}

		zap.L().Debug("provider failed, falling through",
			zap.Stringer("provider", p.Kind()),
			zap.String("url", req.URL),
			zap.Error(err),
		)
	}

	return nil, &ExhaustedError{URL: req.URL, LastErr: lastErr}
}

// attempt runs one provider with the rate-limit gate and backoff retries.
// Retries apply only to throttling; hard blocks and generic failures
// surface immediately so the caller can move on.
func (g *Gateway) attempt(ctx context.Context, p Provider, sess *session, url string) (*FetchResult, error) {
	policy := resilience.Policy{
		DelaySequence: g.opts.RateLimitBackoff,
		ShouldRetry:   resilience.IsRateLimit,
		OnRetry:       resilience.RetryLogger(p.Kind().String(), "fetch"),
	}

	return resilience.Do(ctx, policy, func(ctx context.Context) (*FetchResult, error) {
		if err := sess.wait(ctx); err != nil {
			return nil, err
		}
		g.noteCall(p.Kind())

		res, err := p.Fetch(ctx, url)
		if err != nil {
			if resilience.IsRateLimit(err) {
				sess.noteRateLimit()
				g.noteRateLimit(p.Kind())
			}
			return nil, err
		}
		return res, nil
	})
}

// order resolves the provider attempt order for a request.
func (g *Gateway) order(req FetchRequest) []Provider {
	if req.Provider != nil {
		for _, p := range g.providers {
			if p.Kind() == *req.Provider {
				return []Provider{p}
			}
		}
		return nil
	}
	if req.RequireRender {
		for _, p := range g.providers {
			if p.Kind() == KindBrowserless {
				return []Provider{p}
			}
		}
		return nil
	}
	return g.providers
}

// SessionStats returns a snapshot of every provider session.
func (g *Gateway) SessionStats() []SessionStats {
	stats := make([]SessionStats, 0, len(g.providers))
	for _, p := range g.providers {
		stats = append(stats, g.sessions[p.Kind()].stats())
	}
	return stats
}

// Counters returns a copy of the session-scoped counters.
func (g *Gateway) Counters() Counters {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := Counters{
		Calls:      make(map[string]int, len(g.counters.Calls)),
		RateLimits: make(map[string]int, len(g.counters.RateLimits)),
		Fallbacks:  g.counters.Fallbacks,
	}
	for k, v := range g.counters.Calls {
		c.Calls[k] = v
	}
	for k, v := range g.counters.RateLimits {
		c.RateLimits[k] = v
	}
	return c
}

// Reset clears counters and all session state, for test isolation.
func (g *Gateway) Reset() {
	for _, s := range g.sessions {
		s.reset()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetCountersLocked()
}

func (g *Gateway) resetCounters() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetCountersLocked()
}

func (g *Gateway) resetCountersLocked() {
	g.counters = Counters{
		Calls:      make(map[string]int),
		RateLimits: make(map[string]int),
	}
}

func (g *Gateway) noteCall(k Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters.Calls[k.String()]++
}

func (g *Gateway) noteRateLimit(k Kind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters.RateLimits[k.String()]++
}

func (g *Gateway) noteFallback() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters.Fallbacks++
}
