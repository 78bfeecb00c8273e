package collectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// BreakerSettings tunes WithBreaker.
type BreakerSettings struct {
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// Interval clears closed-state counts; zero keeps them until a trip.
	Interval time.Duration
}

type breakerCollector struct {
	next   Collector
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// WithBreaker wraps next in a circuit breaker that trips after at least three
// requests with a 60% failure ratio. Rate-limit responses do not count as failures.
func WithBreaker(next Collector, settings BreakerSettings, logger *slog.Logger) Collector {
	if settings.Timeout <= 0 {
		settings.Timeout = 2 * time.Minute
	}
	league := next.League()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("collector-%s", league.Lower()),
		MaxRequests: 1,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if _, ok := AsRateLimitError(err); ok {
				return true
			}
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logWithLeague(context.Background(), logger, slog.LevelWarn, league,
				"collector circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from_state", from.String()),
				slog.String("to_state", to.String()),
			)
		},
	})
	return &breakerCollector{next: next, cb: cb, logger: logger}
}

func (b *breakerCollector) League() games.League {
	return b.next.League()
}

func (b *breakerCollector) Provider() string {
	return ProviderName(b.next)
}

func (b *breakerCollector) FetchSchedule(ctx context.Context, date string) ([]games.Snapshot, error) {
	return b.execute(func() ([]games.Snapshot, error) {
		return b.next.FetchSchedule(ctx, date)
	})
}

func (b *breakerCollector) FetchLive(ctx context.Context, date string) ([]games.Snapshot, error) {
	return b.execute(func() ([]games.Snapshot, error) {
		return b.next.FetchLive(ctx, date)
	})
}

// State exposes the breaker state for status output.
func (b *breakerCollector) State() string {
	return b.cb.State().String()
}

func (b *breakerCollector) execute(fn func() ([]games.Snapshot, error)) ([]games.Snapshot, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s: %w", b.next.League(), ErrCircuitOpen)
	}
	snaps, _ := out.([]games.Snapshot)
	return snaps, err
}
