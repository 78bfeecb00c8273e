package config

import (
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// LeagueConfig holds the per-league polling settings.
type LeagueConfig struct {
	League               games.League
	Enabled              bool
	Provider             string
	BaseURL              string
	APIKey               string
	MaxRequestsPerMinute int
	CloseGameThreshold   int
	// Heartbeat keeps an idle league polling at this cadence; zero stops it.
	Heartbeat Duration
	// FastHours, when set, replaces score-based intervals with
	// FastInterval inside the range and SlowInterval outside it.
	FastHours    string
	FastInterval Duration
	SlowInterval Duration
}

type leagueDefaults struct {
	provider  string
	rpm       int
	threshold int
	heartbeat Duration
	fastHours string
	fast      Duration
	slow      Duration
}

var defaultLeagues = map[games.League]leagueDefaults{
	games.LeagueNBA:  {provider: ProviderBalldontlie, rpm: 60, threshold: 10},
	games.LeagueMLB:  {provider: ProviderMLB, rpm: 30, threshold: 3},
	games.LeagueNHL:  {provider: ProviderNHL, rpm: 60, threshold: 2},
	games.LeagueWNBA: {provider: ProviderESPN, rpm: 60, threshold: 10},
	games.LeagueNFL: {
		provider:  ProviderESPN,
		rpm:       30,
		threshold: 10,
		heartbeat: time.Hour,
		fastHours: "07:00-22:59",
		fast:      60 * time.Second,
		slow:      3600 * time.Second,
	},
}

func loadLeagues() []LeagueConfig {
	override := envOrDefault(envProvider, "")
	out := make([]LeagueConfig, 0, len(games.AllLeagues()))
	for _, league := range games.AllLeagues() {
		d := defaultLeagues[league]
		prefix := league.String()
		provider := d.provider
		if override != "" {
			provider = override
		}
		out = append(out, LeagueConfig{
			League:               league,
			Enabled:              boolEnvOrDefault(prefix+suffixEnabled, true),
			Provider:             strings.ToLower(envOrDefault(prefix+suffixProvider, provider)),
			BaseURL:              envOrDefault(prefix+suffixBaseURL, ""),
			APIKey:               envOrDefault(prefix+suffixAPIKey, ""),
			MaxRequestsPerMinute: intEnvOrDefault(prefix+suffixRPM, d.rpm),
			CloseGameThreshold:   nonNegativeIntEnvOrDefault(prefix+suffixThreshold, d.threshold),
			Heartbeat:            durationEnvOrDefault(prefix+suffixHeartbeat, d.heartbeat),
			FastHours:            envOrDefault(prefix+suffixFastHours, d.fastHours),
			FastInterval:         durationEnvOrDefault(prefix+suffixFastInterval, d.fast),
			SlowInterval:         durationEnvOrDefault(prefix+suffixSlowInterval, d.slow),
		})
	}
	return out
}
