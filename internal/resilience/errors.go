// Package resilience provides the retry policy and error taxonomy for
// external provider calls.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// RateLimitError marks a provider response that throttled the request.
// Rate limits are transient: retried with backoff before giving up on
// the provider for the remainder of the attempt.
type RateLimitError struct {
	Provider   string
	StatusCode int
}

func (e *RateLimitError) Error() string {
	return e.Provider + ": rate limited"
}

// HardBlockError marks an explicit denial or a response shape inconsistent
// with the expected format. Hard blocks are structural: the provider is
// marked down and never retried within the attempt.
type HardBlockError struct {
	Provider string
	Detail   string
}

func (e *HardBlockError) Error() string {
	if e.Detail == "" {
		return e.Provider + ": hard blocked"
	}
	return e.Provider + ": hard blocked: " + e.Detail
}

// IsRateLimit reports whether the error chain contains a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsHardBlock reports whether the error chain contains a HardBlockError.
func IsHardBlock(err error) bool {
	var hb *HardBlockError
	return errors.As(err, &hb)
}

// IsTransient reports whether the error is safe to retry: an explicit rate
// limit, a network timeout, or a common connection-level failure. Hard
// blocks are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if IsHardBlock(err) {
		return false
	}
	if IsRateLimit(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped errors from HTTP clients lose their type; fall back to
	// message patterns.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus reports whether the HTTP status code indicates a
// server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
