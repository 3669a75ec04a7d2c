package gateway

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/resilience"
)

// DirectProvider fetches HTML via net/http and converts it to plaintext.
// Free, no API calls; blocked pages fall through to the reader APIs.
type DirectProvider struct {
	client *http.Client
}

// NewDirectProvider creates a DirectProvider with conservative timeouts.
func NewDirectProvider() *DirectProvider {
	return &DirectProvider{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

func (d *DirectProvider) Kind() Kind { return KindDirect }

// Fetch gets a URL, detects blocks, and strips HTML to plaintext.
func (d *DirectProvider) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "direct: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; MarqueeBot/1.0)")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "direct: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil, eris.Wrap(err, "direct: read body")
	}

	if blocked, blockType := detectBlock(resp, body); blocked {
		return nil, &resilience.HardBlockError{Provider: "direct", Detail: string(blockType)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &resilience.RateLimitError{Provider: "direct", StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("direct: status %d", resp.StatusCode)
	}
	if len(body) < 100 {
		return nil, eris.New("direct: empty page")
	}

	return &FetchResult{
		Content:  htmlToText(string(body)),
		Format:   FormatText,
		Provider: KindDirect,
	}, nil
}

// htmlToText removes scripts/styles/nav/footer, strips tags, decodes common
// entities, and collapses whitespace.
func htmlToText(html string) string {
	for _, tag := range []string{"script", "style", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	tagRe := regexp.MustCompile(`<[^>]+>`)
	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
