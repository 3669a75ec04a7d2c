// Package browserless provides a client for the Browserless content API,
// which renders pages in a headless browser before returning HTML.
package browserless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Browserless operations used by the gateway.
type Client interface {
	// Content renders targetURL with full script execution and returns the
	// resulting HTML.
	Content(ctx context.Context, targetURL string) (string, error)
}

// APIError is returned for non-200 responses so callers can distinguish
// throttling from denial.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("browserless: status %d: %s", e.StatusCode, e.Body)
}

// Status returns the HTTP status code.
func (e *APIError) Status() int { return e.StatusCode }

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Browserless client. Rendering is slow; the default
// timeout is generous.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://production-sfo.browserless.io",
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentRequest struct {
	URL string `json:"url"`
}

func (c *httpClient) Content(ctx context.Context, targetURL string) (string, error) {
	payload, err := json.Marshal(contentRequest{URL: targetURL})
	if err != nil {
		return "", eris.Wrap(err, "browserless: marshal request")
	}

	reqURL := fmt.Sprintf("%s/content?token=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "browserless: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "browserless: send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", eris.Wrap(err, "browserless: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}
