// Package nhl collects NHL games from the public api-web.nhle.com endpoints.
package nhl

import (
	"context"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

const (
	providerName   = "nhl-web"
	defaultBaseURL = "https://api-web.nhle.com"
)

// Config controls how the client reaches the NHL web API.
type Config struct {
	BaseURL    string
	HTTPClient collectors.HTTPDoer
	Timeout    time.Duration
}

// Client implements collectors.Collector for the NHL.
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

func (c *Client) League() games.League { return games.LeagueNHL }

func (c *Client) Provider() string { return providerName }

// FetchSchedule reads the week schedule containing date and keeps only that day.
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	var payload scheduleResponse
	if err := c.get(ctx, "/v1/schedule/"+date, &payload); err != nil {
		return nil, err
	}

	captured := c.now().UTC()
	seen := make(map[int]struct{})
	out := make([]games.Snapshot, 0)
	for _, day := range payload.GameWeek {
		if day.Date != date {
			continue
		}
		for _, g := range day.Games {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, mapGame(g, day.Date, captured))
		}
	}
	return out, nil
}

// FetchLive reads the scoreboard for date.
func (c *Client) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	var payload scoreResponse
	if err := c.get(ctx, "/v1/score/"+date, &payload); err != nil {
		return nil, err
	}

	captured := c.now().UTC()
	out := make([]games.Snapshot, 0, len(payload.Games))
	for _, g := range payload.Games {
		if g.GameDate != "" && g.GameDate != date {
			continue
		}
		out = append(out, mapGame(g, date, captured))
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	return collectors.GetJSON(ctx, c.httpClient, collectors.Request{
		League:   games.LeagueNHL,
		Provider: providerName,
		URL:      c.baseURL + path,
	}, dst)
}
