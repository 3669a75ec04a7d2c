package gateway

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of denial detected in a response.
type BlockType string

const (
	BlockNone      BlockType = ""
	BlockAntiBot   BlockType = "anti_bot"
	BlockCaptcha   BlockType = "captcha"
	BlockJSShell   BlockType = "js_shell"
	BlockForbidden BlockType = "forbidden"
)

// detectBlock checks an HTTP response for signs that the provider was
// actively denied rather than transiently failing.
func detectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnavailableForLegalReasons {
		return true, BlockForbidden
	}

	lower := strings.ToLower(string(body))

	if resp.StatusCode == http.StatusServiceUnavailable &&
		(resp.Header.Get("cf-ray") != "" || resp.Header.Get("server") == "cloudflare") {
		return true, BlockAntiBot
	}

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "attention required") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return true, BlockAntiBot
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: tiny body that insists on script execution.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `meta http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}

// challengeSignatures mark provider payloads that are a block page rather
// than content, even when the status code claims success.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
}

// looksLikeChallenge reports whether short content matches a known block
// page. Long documents are never treated as challenges.
func looksLikeChallenge(content string) bool {
	if len(content) >= 1000 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
