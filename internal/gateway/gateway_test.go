package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-data/marquee-cli/internal/resilience"
)

// fakeProvider returns a scripted sequence of results, repeating the last
// entry once the script runs out.
type fakeProvider struct {
	kind Kind

	mu     sync.Mutex
	script []error
	calls  int
}

func (f *fakeProvider) Kind() Kind { return f.kind }

func (f *fakeProvider) Fetch(_ context.Context, url string) (*FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	if idx >= 0 && f.script[idx] != nil {
		return nil, f.script[idx]
	}
	return &FetchResult{Content: "body from " + f.kind.String(), Format: FormatMarkdown, Provider: f.kind}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testOptions() Options {
	return Options{
		BaseDelay:        time.Millisecond,
		Cooldown:         50 * time.Millisecond,
		RateLimitBackoff: []time.Duration{time.Millisecond, time.Millisecond},
	}
}

func TestFetchFirstProviderWins(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect}
	jina := &fakeProvider{kind: KindJina}
	gw := New(testOptions(), direct, jina)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, KindDirect, res.Provider)
	assert.Equal(t, 0, jina.callCount(), "lower-priority providers are not touched")
	assert.Equal(t, 0, gw.Counters().Fallbacks)
}

func TestFetchFallsThroughOnFailure(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{errors.New("connection refused")}}
	jina := &fakeProvider{kind: KindJina, script: []error{errors.New("upstream 502")}}
	firecrawl := &fakeProvider{kind: KindFirecrawl}
	gw := New(testOptions(), direct, jina, firecrawl)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, KindFirecrawl, res.Provider, "the chain continues to the third provider")
	assert.Equal(t, 1, gw.Counters().Fallbacks)
}

func TestFetchExhaustsAllProviders(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{errors.New("boom")}}
	jina := &fakeProvider{kind: KindJina, script: []error{errors.New("also boom")}}
	gw := New(testOptions(), direct, jina)

	_, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "https://example.com", exhausted.URL)
	assert.ErrorContains(t, exhausted.LastErr, "also boom")
}

func TestFetchNoProviders(t *testing.T) {
	gw := New(testOptions())

	_, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestFetchRetriesRateLimitWithinProvider(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{
		&resilience.RateLimitError{Provider: "direct", StatusCode: 429},
		nil,
	}}
	gw := New(testOptions(), direct)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, KindDirect, res.Provider)
	assert.Equal(t, 2, direct.callCount())
	assert.Equal(t, 1, gw.Counters().RateLimits["direct"])
}

func TestFetchGivesUpOnPersistentRateLimit(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{
		&resilience.RateLimitError{Provider: "direct"},
	}}
	jina := &fakeProvider{kind: KindJina}
	gw := New(testOptions(), direct, jina)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})

	require.NoError(t, err)
	assert.Equal(t, KindJina, res.Provider)
	assert.Equal(t, 3, direct.callCount(), "initial try plus one retry per backoff step")
}

func TestFetchHardBlockMarksProviderDown(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{
		&resilience.HardBlockError{Provider: "direct", Detail: "403"},
	}}
	jina := &fakeProvider{kind: KindJina}
	gw := New(testOptions(), direct, jina)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com/a"})
	require.NoError(t, err)
	assert.Equal(t, KindJina, res.Provider)
	assert.Equal(t, 1, direct.callCount())

	// While the cooldown runs, the blocked provider is skipped entirely.
	res, err = gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com/b"})
	require.NoError(t, err)
	assert.Equal(t, KindJina, res.Provider)
	assert.Equal(t, 1, direct.callCount(), "no call reaches a provider on cooldown")

	stats := gw.SessionStats()
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Down)
}

func TestFetchProbeAfterCooldownRestores(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect, script: []error{
		&resilience.HardBlockError{Provider: "direct"},
		nil,
	}}
	gw := New(testOptions(), direct)

	_, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	assert.Error(t, err)

	// Let the cooldown elapse, then the single probe succeeds and closes
	// the circuit.
	gw.sessions[KindDirect].retryAt = time.Now().Add(-time.Millisecond)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, KindDirect, res.Provider)
	assert.False(t, gw.SessionStats()[0].Down)
}

func TestFetchRequireRenderUsesBrowserlessOnly(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect}
	browserless := &fakeProvider{kind: KindBrowserless}
	gw := New(testOptions(), direct, browserless)

	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com", RequireRender: true})

	require.NoError(t, err)
	assert.Equal(t, KindBrowserless, res.Provider)
	assert.Equal(t, 0, direct.callCount())
}

func TestFetchRequireRenderWithoutBrowserless(t *testing.T) {
	gw := New(testOptions(), &fakeProvider{kind: KindDirect})

	_, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com", RequireRender: true})

	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestFetchPinnedProvider(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect}
	jina := &fakeProvider{kind: KindJina}
	gw := New(testOptions(), direct, jina)

	kind := KindJina
	res, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com", Provider: &kind})

	require.NoError(t, err)
	assert.Equal(t, KindJina, res.Provider)
	assert.Equal(t, 0, direct.callCount())
}

func TestCountersAndReset(t *testing.T) {
	direct := &fakeProvider{kind: KindDirect}
	gw := New(testOptions(), direct)

	_, err := gw.Fetch(context.Background(), FetchRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, gw.Counters().Calls["direct"])

	gw.Reset()
	assert.Empty(t, gw.Counters().Calls)
	assert.Equal(t, 0, gw.SessionStats()[0].Calls)
}
