package balldontlie

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// Config controls how the balldontlie client reaches the upstream API.
type Config struct {
	BaseURL        string
	APIKey         string
	HTTPClient     collectors.HTTPDoer
	Timeout        time.Duration
	MaxPages       int
	// PagesPerSecond spaces paginated calls; zero uses the default, negative disables pacing.
	PagesPerSecond float64
	Logger         *slog.Logger
}

// Client fetches NBA games from the balldontlie API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient collectors.HTTPDoer
	now        func() time.Time
	maxPages   int
	logger     *slog.Logger
}

// NewClient constructs a balldontlie client with the provided configuration.
func NewClient(cfg Config) *Client {
	pace := cfg.PagesPerSecond
	if pace == 0 {
		pace = defaultPagesPerSecond
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &Client{
		baseURL:    collectors.NormalizeBaseURL(cfg.BaseURL, defaultBaseURL),
		apiKey:     cfg.APIKey,
		httpClient: collectors.NewPacedDoer(collectors.ResolveHTTPClient(cfg.HTTPClient, cfg.Timeout), pace, 1),
		now:        time.Now,
		maxPages:   maxPages,
		logger:     cfg.Logger,
	}
}

func (c *Client) League() games.League { return games.LeagueNBA }

func (c *Client) Provider() string { return providerName }

// FetchSchedule returns every game on date.
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.fetch(ctx, date)
}

// FetchLive returns every game on date with current scores; balldontlie serves
// both from the same endpoint.
func (c *Client) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.fetch(ctx, date)
}

func (c *Client) fetch(ctx context.Context, date string) ([]games.Snapshot, error) {
	captured := c.now().UTC()
	all := make([]games.Snapshot, 0)
	page := 1
	cursor := 0

	for {
		var payload gamesResponse
		err := collectors.GetJSON(ctx, c.httpClient, collectors.Request{
			League:   games.LeagueNBA,
			Provider: providerName,
			URL:      c.buildURL(date, page, cursor),
			Header:   c.headers(),
		}, &payload)
		if err != nil {
			return nil, err
		}

		for _, g := range payload.Data {
			all = append(all, mapGame(g, date, captured))
		}

		if page >= c.maxPages {
			break
		}
		switch {
		case payload.Meta.NextCursor > 0:
			cursor = payload.Meta.NextCursor
		case payload.Meta.TotalPages > 0:
			if page >= payload.Meta.TotalPages {
				return all, nil
			}
		case len(payload.Data) < defaultPerPage:
			return all, nil
		}
		page++
	}

	return all, nil
}

func (c *Client) buildURL(date string, page, cursor int) string {
	q := url.Values{}
	q.Set("dates[]", date)
	q.Set("per_page", strconv.Itoa(defaultPerPage))
	if cursor > 0 {
		q.Set("cursor", strconv.Itoa(cursor))
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	return c.baseURL + "/games?" + q.Encode()
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}
