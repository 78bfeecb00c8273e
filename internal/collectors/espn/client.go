// Package espn collects scoreboards from ESPN's public site API. One client
// serves one league.
package espn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

const (
	providerName   = "espn"
	defaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports"
)

type leaguePath struct {
	path       string
	regulation int
}

var leaguePaths = map[games.League]leaguePath{
	games.LeagueNFL:  {path: "football/nfl", regulation: 4},
	games.LeagueWNBA: {path: "basketball/wnba", regulation: 4},
	games.LeagueNBA:  {path: "basketball/nba", regulation: 4},
	games.LeagueNHL:  {path: "hockey/nhl", regulation: 3},
	games.LeagueMLB:  {path: "baseball/mlb", regulation: 9},
}

type Config struct {
	League     games.League
	BaseURL    string
	HTTPClient collectors.HTTPDoer
	Timeout    time.Duration
}

type Client struct {
	league     games.League
	path       leaguePath
	baseURL    string
	httpClient collectors.HTTPDoer
	now        func() time.Time
}

// NewClient returns an ESPN scoreboard client for cfg.League.
func NewClient(cfg Config) (*Client, error) {
	lp, ok := leaguePaths[cfg.League]
	if !ok {
		return nil, fmt.Errorf("espn: %w: %q", games.ErrUnknownLeague, cfg.League)
	}
	return &Client{
		league:     cfg.League,
		path:       lp,
		baseURL:    collectors.NormalizeBaseURL(cfg.BaseURL, defaultBaseURL),
		httpClient: collectors.ResolveHTTPClient(cfg.HTTPClient, cfg.Timeout),
		now:        time.Now,
	}, nil
}

func (c *Client) League() games.League { return c.league }

func (c *Client) Provider() string { return providerName }

// FetchSchedule and FetchLive share the scoreboard; it lists the day's games
// with current scores.
func (c *Client) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.scoreboard(ctx, date)
}

func (c *Client) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	return c.scoreboard(ctx, date)
}

func (c *Client) scoreboard(ctx context.Context, date string) ([]games.Snapshot, error) {
	q := url.Values{}
	q.Set("dates", strings.ReplaceAll(date, "-", ""))

	var payload scoreboardResponse
	err := collectors.GetJSON(ctx, c.httpClient, collectors.Request{
		League:   c.league,
		Provider: providerName,
		URL:      fmt.Sprintf("%s/%s/scoreboard?%s", c.baseURL, c.path.path, q.Encode()),
	}, &payload)
	if err != nil {
		return nil, err
	}

	captured := c.now().UTC()
	out := make([]games.Snapshot, 0, len(payload.Events))
	for _, e := range payload.Events {
		if e.ID == "" {
			continue
		}
		out = append(out, mapEvent(c.league, c.path.regulation, e, date, captured))
	}
	return out, nil
}
