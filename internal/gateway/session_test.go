package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleTierEscalation(t *testing.T) {
	s := newSession(KindJina, time.Second, time.Minute)

	assert.Equal(t, "normal", s.stats().Tier)
	assert.Equal(t, time.Second, s.minDelay())

	for i := 0; i < cautiousAfterHits; i++ {
		s.noteRateLimit()
	}
	assert.Equal(t, "cautious", s.stats().Tier)
	assert.Equal(t, 3*time.Second, s.minDelay())

	for i := cautiousAfterHits; i < slowAfterHits; i++ {
		s.noteRateLimit()
	}
	assert.Equal(t, "slow", s.stats().Tier)
	assert.Equal(t, 6*time.Second, s.minDelay())
}

func TestThrottleTierNeverDecreases(t *testing.T) {
	s := newSession(KindJina, time.Second, time.Minute)

	for i := 0; i < slowAfterHits; i++ {
		s.noteRateLimit()
	}
	require.Equal(t, "slow", s.stats().Tier)

	// A success restores the circuit but leaves the tier alone.
	s.restore()
	assert.Equal(t, "slow", s.stats().Tier)
	assert.Equal(t, 6*time.Second, s.minDelay())
}

func TestMarkDownAndProbe(t *testing.T) {
	s := newSession(KindDirect, time.Millisecond, time.Minute)
	now := time.Now()
	s.nowFunc = func() time.Time { return now }

	assert.True(t, s.allow())

	s.markDown()
	assert.False(t, s.allow(), "down provider is skipped")

	// Still inside the cooldown.
	now = now.Add(30 * time.Second)
	assert.False(t, s.allow())

	// Cooldown elapsed: exactly one probe is admitted, and the next caller
	// waits for a fresh cooldown.
	now = now.Add(31 * time.Second)
	assert.True(t, s.allow(), "probe call after cooldown")
	assert.False(t, s.allow(), "second caller waits for the probe's outcome")

	s.restore()
	assert.True(t, s.allow())
	assert.False(t, s.stats().Down)
}

func TestWaitRecordsSlidingWindow(t *testing.T) {
	s := newSession(KindDirect, 0, time.Minute)
	now := time.Now()
	s.nowFunc = func() time.Time { return now }

	require.NoError(t, s.wait(context.Background()))
	require.NoError(t, s.wait(context.Background()))
	assert.Equal(t, 2, s.stats().RecentCalls)
	assert.Equal(t, 2, s.stats().Calls)

	// Calls age out of the window; the lifetime total does not.
	now = now.Add(callWindow + time.Second)
	require.NoError(t, s.wait(context.Background()))
	assert.Equal(t, 1, s.stats().RecentCalls)
	assert.Equal(t, 3, s.stats().Calls)
}

func TestSessionReset(t *testing.T) {
	s := newSession(KindJina, time.Millisecond, time.Minute)
	for i := 0; i < slowAfterHits; i++ {
		s.noteRateLimit()
	}
	s.markDown()

	s.reset()

	st := s.stats()
	assert.Equal(t, "normal", st.Tier)
	assert.Equal(t, 0, st.RateLimitHits)
	assert.False(t, st.Down)
	assert.Equal(t, 0, st.Calls)
}
