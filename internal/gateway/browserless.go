package gateway

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/resilience"
	"github.com/marquee-data/marquee-cli/pkg/browserless"
)

// BrowserlessProvider renders pages with full script execution. The most
// expensive path: last in the fallback order, or first for subjects that
// require rendering.
type BrowserlessProvider struct {
	client browserless.Client
}

// NewBrowserlessProvider creates a BrowserlessProvider.
func NewBrowserlessProvider(client browserless.Client) *BrowserlessProvider {
	return &BrowserlessProvider{client: client}
}

func (b *BrowserlessProvider) Kind() Kind { return KindBrowserless }

// Fetch renders a URL and returns the page as plaintext.
func (b *BrowserlessProvider) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	html, err := b.client.Content(ctx, targetURL)
	if err != nil {
		return nil, classifyAPIError("browserless", err)
	}

	text := htmlToText(html)
	if len(text) < 100 {
		return nil, eris.New("browserless: rendered page empty")
	}
	if looksLikeChallenge(text) {
		return nil, &resilience.HardBlockError{Provider: "browserless", Detail: "challenge page after render"}
	}

	return &FetchResult{
		Content:  text,
		Format:   FormatText,
		Provider: KindBrowserless,
	}, nil
}
