// Package mlb collects MLB games from the public statsapi.mlb.com schedule.
package mlb

import (
	"context"
	"net/url"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

const (
	providerName   = "mlb-statsapi"
	defaultBaseURL = "https://statsapi.mlb.com/api/v1"
	sportIDMLB     = "1"
)

type Config struct {
	BaseURL    string
	HTTPClient collectors.HTTPDoer
	Timeout    time.Duration
}

// Client implements collectors.Collector for MLB. The schedule endpoint with
// the linescore hydration carries live scores, so both fetches share it.
type Client struct {
	baseURL    string
	httpClient collectors.HTTPDoer
	now        func() time.Time
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:    collectors.NormalizeBaseURL(cfg.BaseURL, defaultBaseURL),
		httpClient: collectors.ResolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
		now:        time.Now,
	}
}

func (c *Client) League() games.League { return games.LeagueMLB }

func (c *Client) Provider() string { return providerName }

func (c *Client) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.fetch(ctx, date, "team")
}

func (c *Client) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.fetch(ctx, date, "linescore,team")
}

func (c *Client) fetch(ctx context.Context, date, hydrate string) ([]games.Snapshot, error) {
	q := url.Values{}
	q.Set("sportId", sportIDMLB)
	q.Set("date", date)
	q.Set("hydrate", hydrate)

	var payload scheduleResponse
	err := collectors.GetJSON(ctx, c.httpClient, collectors.Request{
		League:   games.LeagueMLB,
		Provider: providerName,
		URL:      c.baseURL + "/schedule?" + q.Encode(),
	}, &payload)
	if err != nil {
		return nil, err
	}

	captured := c.now().UTC()
	seen := make(map[int]struct{})
	out := make([]games.Snapshot, 0, payload.TotalGames)
	for _, bucket := range payload.Dates {
		for _, g := range bucket.Games {
			// Doubleheader resumptions show up twice under one gamePk.
			if _, dup := seen[g.GamePk]; dup {
				continue
			}
			seen[g.GamePk] = struct{}{}
			out = append(out, mapGame(g, bucket.Date, captured))
		}
	}
	return out, nil
}
