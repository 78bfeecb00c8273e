package server

import (
	"context"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
)

// Poller is the part of the polling orchestrator the server drives.
type Poller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() polling.State
	// Done is closed when the loop started last exits.
	Done() <-chan struct{}
	Status() polling.Status
	Poll(ctx context.Context, leagues []games.League, opts polling.PollOptions) map[games.League]polling.Result
}

// Scheduler is the part of the schedule updater the server drives.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Refresh(ctx context.Context) map[games.League]int
	UpdateAll(ctx context.Context, daysAhead int) map[games.League]int
	UpdateLeague(ctx context.Context, league games.League, from time.Time, daysAhead int) (int, error)
	Stats(ctx context.Context, league games.League) (schedule.Stats, error)
}
