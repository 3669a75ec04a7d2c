package gateway

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/resilience"
	"github.com/marquee-data/marquee-cli/pkg/firecrawl"
)

// FirecrawlProvider wraps the Firecrawl client as a gateway Provider.
type FirecrawlProvider struct {
	client firecrawl.Client
}

// NewFirecrawlProvider creates a FirecrawlProvider.
func NewFirecrawlProvider(client firecrawl.Client) *FirecrawlProvider {
	return &FirecrawlProvider{client: client}
}

func (f *FirecrawlProvider) Kind() Kind { return KindFirecrawl }

// Fetch scrapes a URL via Firecrawl and classifies failures.
func (f *FirecrawlProvider) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"markdown"},
	})
	if err != nil {
		return nil, classifyAPIError("firecrawl", err)
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}

	content := strings.TrimSpace(resp.Data.Markdown)
	if looksLikeChallenge(content) {
		return nil, &resilience.HardBlockError{Provider: "firecrawl", Detail: "challenge page in payload"}
	}

	return &FetchResult{
		Content:  content,
		Format:   FormatMarkdown,
		Provider: KindFirecrawl,
	}, nil
}
