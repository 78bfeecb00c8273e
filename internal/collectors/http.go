package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// DefaultTimeout bounds one upstream HTTP call.
const DefaultTimeout = 10 * time.Second

const maxErrorBody = 512

// HTTPDoer is the subset of *http.Client collectors need.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResolveHTTPClient returns client, or a default client with timeout.
func ResolveHTTPClient(client HTTPDoer, timeout time.Duration) HTTPDoer {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NormalizeBaseURL trims trailing slashes, falling back to def.
func NormalizeBaseURL(raw, def string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = def
	}
	return strings.TrimRight(raw, "/")
}

// Request describes one JSON GET.
type Request struct {
	League   games.League
	Provider string
	URL      string
	Header   http.Header
}

// GetJSON issues req and decodes a 2xx body into dst. Non-2xx responses map to
// RateLimitError or UpstreamError; bad payloads to a decode error.
func GetJSON(ctx context.Context, doer HTTPDoer, req Request, dst any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.Provider, err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := doer.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: request: %w", req.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			League:     req.League,
			Provider:   req.Provider,
			StatusCode: resp.StatusCode,
			RetryAfter: ParseRetryAfter(resp.Header, time.Now()),
			Remaining:  resp.Header.Get("X-RateLimit-Remaining"),
			Message:    req.Provider + " rate limited",
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{
			League:     req.League,
			Provider:   req.Provider,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.Provider, err)
	}
	return nil
}
