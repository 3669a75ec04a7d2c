package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/marquee-data/marquee-cli/internal/resilience"
	"github.com/marquee-data/marquee-cli/pkg/jina"
)

// JinaProvider wraps the Jina Reader client as a gateway Provider.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider creates a JinaProvider.
func NewJinaProvider(client jina.Client) *JinaProvider {
	return &JinaProvider{client: client}
}

func (j *JinaProvider) Kind() Kind { return KindJina }

// Fetch reads a URL via Jina Reader and classifies failures.
func (j *JinaProvider) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return nil, classifyAPIError("jina", err)
	}

	if resp.Code != 0 && resp.Code != http.StatusOK {
		return nil, eris.Errorf("jina: upstream code %d", resp.Code)
	}

	content := strings.TrimSpace(resp.Data.Content)
	if looksLikeChallenge(content) {
		return nil, &resilience.HardBlockError{Provider: "jina", Detail: "challenge page in payload"}
	}

	return &FetchResult{
		Content:  content,
		Format:   FormatMarkdown,
		Provider: KindJina,
	}, nil
}

// classifyAPIError maps a pkg client error onto the resilience taxonomy.
// Providers share the same convention: 429 means throttled, 403/451 mean
// actively denied, anything else is a generic failure.
func classifyAPIError(provider string, err error) error {
	status := statusFromError(err)
	switch status {
	case 0:
		return err
	case http.StatusTooManyRequests:
		return &resilience.RateLimitError{Provider: provider, StatusCode: status}
	case http.StatusForbidden, http.StatusUnavailableForLegalReasons:
		return &resilience.HardBlockError{Provider: provider, Detail: http.StatusText(status)}
	default:
		return err
	}
}

// statusFromError pulls an HTTP status out of the other pkg clients'
// error types without importing them here.
type statusCarrier interface {
	error
	Status() int
}

func statusFromError(err error) int {
	var sc statusCarrier
	if errors.As(err, &sc) {
		return sc.Status()
	}
	return 0
}
