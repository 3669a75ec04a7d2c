// Package gateway fetches resources from external providers with rate
// limiting, retry-with-backoff, and per-provider circuit breaking.
package gateway

import (
	"context"
	"fmt"
)

// Kind identifies a fetch provider. The set is closed: adding or removing
// a provider is a compile-time change, not a registry entry.
type Kind int

const (
	// KindDirect is a plain HTTP fetch. Free, tried first.
	KindDirect Kind = iota
	// KindJina is the Jina Reader API, returning markdown.
	KindJina
	// KindFirecrawl is the Firecrawl scrape API.
	KindFirecrawl
	// KindBrowserless renders the page in a headless browser. Most
	// expensive; last resort, or first when a subject requires scripts.
	KindBrowserless

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindJina:
		return "jina"
	case KindFirecrawl:
		return "firecrawl"
	case KindBrowserless:
		return "browserless"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ContentFormat describes what a provider returned.
type ContentFormat string

const (
	FormatMarkdown ContentFormat = "markdown"
	FormatHTML     ContentFormat = "html"
	FormatText     ContentFormat = "text"
)

// FetchRequest locates a resource and carries fetch options. Stateless,
// created per call.
type FetchRequest struct {
	URL string

	// RequireRender demands the rendering provider directly, for subjects
	// known to need full script execution.
	RequireRender bool

	// Provider, when set, restricts the fetch to a single provider.
	Provider *Kind
}

// FetchResult is the immutable outcome of a successful fetch. Ownership
// transfers to the caller.
type FetchResult struct {
	Content  string        `json:"content"`
	Format   ContentFormat `json:"format"`
	Provider Kind          `json:"-"`
}

// Provider fetches a single URL. Implementations classify failures into
// the resilience error taxonomy so the gateway can route around them.
type Provider interface {
	Kind() Kind
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// ExhaustedError reports that every provider and every retry failed for a
// request. The gateway never substitutes stale or default content.
type ExhaustedError struct {
	URL     string
	LastErr error
}

func (e *ExhaustedError) Error() string {
	if e.LastErr == nil {
		return "gateway: all providers exhausted for " + e.URL
	}
	return "gateway: all providers exhausted for " + e.URL + ": " + e.LastErr.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
