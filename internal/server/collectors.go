package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/collectors/balldontlie"
	"github.com/preston-bernstein/sports-data-service/internal/collectors/espn"
	"github.com/preston-bernstein/sports-data-service/internal/collectors/fixture"
	"github.com/preston-bernstein/sports-data-service/internal/collectors/mlb"
	"github.com/preston-bernstein/sports-data-service/internal/collectors/nhl"
	"github.com/preston-bernstein/sports-data-service/internal/config"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// collectorFactory builds one collector per league with the shared breaker.
type collectorFactory struct {
	timeout time.Duration
	loc     *time.Location
	logger  *slog.Logger
	breaker collectors.BreakerSettings
}

func newCollectorFactory(cfg config.Config, logger *slog.Logger) collectorFactory {
	return collectorFactory{timeout: cfg.APITimeout, loc: cfg.Location, logger: logger}
}

func (f collectorFactory) build(lc config.LeagueConfig) (collectors.Collector, error) {
	base, err := f.selectCollector(lc)
	if err != nil {
		return nil, err
	}
	if lc.Provider == config.ProviderFixture {
		return base, nil
	}
	return collectors.WithBreaker(base, f.breaker, f.logger), nil
}

func (f collectorFactory) selectCollector(lc config.LeagueConfig) (collectors.Collector, error) {
	switch lc.Provider {
	case config.ProviderFixture:
		return fixture.New(lc.League, f.loc), nil
	case config.ProviderBalldontlie:
		if lc.League != games.LeagueNBA {
			return nil, fmt.Errorf("%s: provider %s only serves NBA", lc.League, lc.Provider)
		}
		return balldontlie.NewClient(balldontlie.Config{
			BaseURL: lc.BaseURL,
			APIKey:  lc.APIKey,
			Timeout: f.timeout,
			Logger:  f.logger,
		}), nil
	case config.ProviderNHL:
		if lc.League != games.LeagueNHL {
			return nil, fmt.Errorf("%s: provider %s only serves NHL", lc.League, lc.Provider)
		}
		return nhl.NewClient(nhl.Config{BaseURL: lc.BaseURL, Timeout: f.timeout}), nil
	case config.ProviderMLB:
		if lc.League != games.LeagueMLB {
			return nil, fmt.Errorf("%s: provider %s only serves MLB", lc.League, lc.Provider)
		}
		return mlb.NewClient(mlb.Config{BaseURL: lc.BaseURL, Timeout: f.timeout}), nil
	case config.ProviderESPN:
		return espn.NewClient(espn.Config{League: lc.League, BaseURL: lc.BaseURL, Timeout: f.timeout})
	default:
		return nil, fmt.Errorf("%s: unknown provider %q", lc.League, lc.Provider)
	}
}
