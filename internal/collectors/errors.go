package collectors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

var (
	// ErrProviderUnavailable is returned when no collector is wired for a league.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrCircuitOpen means the request was short-circuited and never sent upstream.
	ErrCircuitOpen = errors.New("circuit open")
)

// RateLimitError captures 429 responses from upstream providers.
type RateLimitError struct {
	League     games.League
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Remaining  string
	Message    string
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "provider rate limited"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status=%d)", msg, e.StatusCode)
	}
	return msg
}

// AsRateLimitError attempts to unwrap an error into a RateLimitError.
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}

// UpstreamError is a non-2xx response other than 429.
type UpstreamError struct {
	League     games.League
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// AsUpstreamError attempts to unwrap an error into an UpstreamError.
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// StatusCode extracts the upstream HTTP status from err, or 0.
func StatusCode(err error) int {
	if rl, ok := AsRateLimitError(err); ok {
		return rl.StatusCode
	}
	if up, ok := AsUpstreamError(err); ok {
		return up.StatusCode
	}
	return 0
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
