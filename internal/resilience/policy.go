package resilience

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Policy is a retry policy expressed as an explicit delay sequence. The
// total number of attempts is len(DelaySequence)+1: one initial try, then
// one retry after each delay. An empty sequence means no retries.
type Policy struct {
	// DelaySequence holds the waits between consecutive attempts.
	DelaySequence []time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with the attempt number
	// (1-based) and the error that triggered it.
	OnRetry func(attempt int, err error)
}

// RateLimitPolicy returns the backoff sequence applied when a provider
// throttles: 30s, 60s, 120s, then give up on that provider.
func RateLimitPolicy() Policy {
	return Policy{
		DelaySequence: []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
		ShouldRetry:   IsRateLimit,
	}
}

// Do executes fn under the policy. It stops on success, on a non-retryable
// error, on context cancellation, or when the delay sequence is exhausted.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt <= len(p.DelaySequence); attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}
		if !shouldRetry(lastErr) {
			return zero, lastErr
		}
		if attempt >= len(p.DelaySequence) {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(p.DelaySequence[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(provider, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying provider call",
			zap.String("provider", provider),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
