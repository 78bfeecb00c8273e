package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

// Config holds runtime configuration for the server.
type Config struct {
	Port     string
	Timezone string
	Location *time.Location
	// PollingHours are HH:MM-HH:MM ranges in Location; ranges may cross midnight.
	PollingHours          []string
	OffHoursSleep         Duration
	MinSleep              Duration
	DefaultPollInterval   Duration
	CloseGamePollInterval Duration
	ScheduledPollInterval Duration
	APITimeout            Duration
	ScheduleUpdateTimes   []string
	ScheduleDaysAhead     int
	AdminToken            string
	LogLevel              string
	LogFormat             string
	Leagues               []LeagueConfig
	Database              DatabaseConfig
	Redis                 RedisConfig
	Metrics               MetricsConfig
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	tz := envOrDefault(envTimezone, defaultTimezone)
	return Config{
		Port:                  envOrDefault(envPort, defaultPort),
		Timezone:              tz,
		Location:              timeutil.ResolveLocation(tz, time.UTC),
		PollingHours:          listEnvOrDefault(envPollingHours, defaultPollingHours),
		OffHoursSleep:         durationEnvOrDefault(envOffHoursSleep, defaultOffHoursSleep),
		MinSleep:              durationEnvOrDefault(envMinSleep, defaultMinSleep),
		DefaultPollInterval:   durationEnvOrDefault(envDefaultInterval, defaultDefaultInterval),
		CloseGamePollInterval: durationEnvOrDefault(envCloseGameInterval, defaultCloseGameInterval),
		ScheduledPollInterval: durationEnvOrDefault(envScheduledInterval, defaultScheduledInterval),
		APITimeout:            durationEnvOrDefault(envAPITimeout, defaultAPITimeout),
		ScheduleUpdateTimes:   listEnvOrDefault(envScheduleTimes, defaultScheduleTimes),
		ScheduleDaysAhead:     nonNegativeIntEnvOrDefault(envScheduleDaysAhead, defaultScheduleDaysAhead),
		AdminToken:            envOrDefault(envAdminToken, ""),
		LogLevel:              envOrDefault(envLogLevel, ""),
		LogFormat:             envOrDefault(envLogFormat, ""),
		Leagues:               loadLeagues(),
		Database:              loadDatabase(),
		Redis:                 loadRedis(),
		Metrics:               loadMetrics(),
	}
}

// League returns the settings for league.
func (c Config) League(league games.League) (LeagueConfig, bool) {
	for _, lc := range c.Leagues {
		if lc.League == league {
			return lc, true
		}
	}
	return LeagueConfig{}, false
}

// EnabledLeagues lists the leagues that should be polled.
func (c Config) EnabledLeagues() []LeagueConfig {
	var out []LeagueConfig
	for _, lc := range c.Leagues {
		if lc.Enabled {
			out = append(out, lc)
		}
	}
	return out
}

// Validate rejects settings the pollers cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.DefaultPollInterval <= 0 || c.CloseGamePollInterval <= 0 || c.ScheduledPollInterval <= 0 {
		errs = append(errs, errors.New("poll intervals must be positive"))
	}
	for _, at := range c.ScheduleUpdateTimes {
		if _, err := timeutil.ParseClock(at); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", envScheduleTimes, err))
		}
	}
	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("%s is required for driver %s", envDatabaseURL, c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported %s %q", envDatabaseDriver, c.Database.Driver))
	}
	enabled := 0
	for _, lc := range c.Leagues {
		if !lc.Enabled {
			continue
		}
		enabled++
		if lc.MaxRequestsPerMinute <= 0 {
			errs = append(errs, fmt.Errorf("%s: requests per minute must be positive", lc.League))
		}
		if lc.CloseGameThreshold < 0 {
			errs = append(errs, fmt.Errorf("%s: close game threshold must not be negative", lc.League))
		}
		if lc.FastHours != "" && (lc.FastInterval <= 0 || lc.SlowInterval <= 0) {
			errs = append(errs, fmt.Errorf("%s: fast hours need positive fast and slow intervals", lc.League))
		}
		switch lc.Provider {
		case ProviderFixture, ProviderBalldontlie, ProviderNHL, ProviderMLB, ProviderESPN:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown provider %q", lc.League, lc.Provider))
		}
	}
	if enabled == 0 {
		errs = append(errs, errors.New("no leagues enabled"))
	}
	return errors.Join(errs...)
}
