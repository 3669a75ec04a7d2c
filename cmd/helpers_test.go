package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marquee-data/marquee-cli/internal/gateway"
)

func TestParseProviderKind(t *testing.T) {
	cases := map[string]gateway.Kind{
		"direct":      gateway.KindDirect,
		"jina":        gateway.KindJina,
		"firecrawl":   gateway.KindFirecrawl,
		"browserless": gateway.KindBrowserless,
	}
	for name, want := range cases {
		got, err := parseProviderKind(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := parseProviderKind("carrier-pigeon")
	assert.Error(t, err)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest("GET", "/changes?limit=50&bad=zero&neg=-3", nil)

	assert.Equal(t, 50, queryInt(req, "limit", 100))
	assert.Equal(t, 100, queryInt(req, "missing", 100))
	assert.Equal(t, 100, queryInt(req, "bad", 100), "non-numeric falls back to default")
	assert.Equal(t, 100, queryInt(req, "neg", 100), "non-positive falls back to default")
}
