package browserless

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

func TestContentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content", r.URL.Path)
		assert.Equal(t, "bl-token", r.URL.Query().Get("token"))

		var req struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/app", req.URL)

		_, _ = w.Write([]byte("<html><body>rendered</body></html>"))
	}))
	defer srv.Close()

	c := NewClient("bl-token", WithBaseURL(srv.URL))

	html, err := c.Content(context.Background(), "https://example.com/app")
	require.NoError(t, err)
	assert.Contains(t, html, "rendered")
}

func TestContentAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("concurrency limit"))
	}))
	defer srv.Close()

	c := NewClient("bl-token", WithBaseURL(srv.URL))

	_, err := c.Content(context.Background(), "https://example.com/app")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status())
}
