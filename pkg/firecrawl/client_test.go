package firecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))

		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/article", req.URL)
		assert.Equal(t, []string{"markdown"}, req.Formats)

		_, _ = w.Write([]byte(`{"success":true,"data":{"url":"https://example.com/article","title":"A Review","markdown":"Body.","statusCode":200}}`))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))

	resp, err := c.Scrape(context.Background(), ScrapeRequest{
		URL:     "https://example.com/article",
		Formats: []string{"markdown"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Body.", resp.Data.Markdown)
}

func TestScrapeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	c := NewClient("fc-key", WithBaseURL(srv.URL))

	_, err := c.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status())
}
