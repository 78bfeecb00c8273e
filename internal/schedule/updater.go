// Package schedule refreshes upcoming games from each league's collector,
// on demand and at fixed times of day.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

const (
	endpointSchedule  = "schedule"
	rateLimitCooldown = 2 * time.Minute
)

// ErrBudgetExhausted is returned when a refresh stopped early for lack of budget.
var ErrBudgetExhausted = errors.New("request budget exhausted")

// Store is the part of the game store the updater needs.
type Store interface {
	Upsert(ctx context.Context, snap games.Snapshot) error
	QueryAll(ctx context.Context, league games.League) ([]games.Snapshot, error)
}

// Config wires an Updater.
type Config struct {
	Collectors []collectors.Collector
	Budget     *budget.Budget
	Usage      *usage.Recorder
	Store      Store
	// Times are HH:MM run times for the daily refresh jobs.
	Times     []string
	DaysAhead int
	Location  *time.Location
	Logger    *slog.Logger
	Now       func() time.Time
	// OnUpdated runs after every scheduled or manual refresh.
	OnUpdated func(ctx context.Context, results map[games.League]int)
}

// Updater fetches schedules into the store.
type Updater struct {
	order      []games.League
	collectors map[games.League]collectors.Collector
	budget     *budget.Budget
	usage      *usage.Recorder
	store      Store
	times      []string
	daysAhead  int
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
	onUpdated  func(ctx context.Context, results map[games.League]int)

	cronMu sync.Mutex
	cron   *cronRunner
}

// New validates cfg and builds an Updater.
func New(cfg Config) (*Updater, error) {
	if cfg.Budget == nil || cfg.Store == nil {
		return nil, errors.New("schedule updater requires a budget and a store")
	}
	u := &Updater{
		collectors: make(map[games.League]collectors.Collector, len(cfg.Collectors)),
		budget:     cfg.Budget,
		usage:      cfg.Usage,
		store:      cfg.Store,
		times:      cfg.Times,
		daysAhead:  cfg.DaysAhead,
		loc:        cfg.Location,
		logger:     cfg.Logger,
		now:        cfg.Now,
		onUpdated:  cfg.OnUpdated,
	}
	for _, c := range cfg.Collectors {
		if c == nil {
			continue
		}
		if _, dup := u.collectors[c.League()]; !dup {
			u.order = append(u.order, c.League())
		}
		u.collectors[c.League()] = c
	}
	if u.loc == nil {
		u.loc = time.UTC
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.daysAhead < 0 {
		u.daysAhead = 0
	}
	return u, nil
}

// Leagues lists the leagues the updater refreshes.
func (u *Updater) Leagues() []games.League {
	return append([]games.League(nil), u.order...)
}

// UpdateLeague refreshes league for from and the daysAhead days after it and
// returns how many games were stored. It stops at the first failure or when
// the budget runs out, returning what it stored so far.
func (u *Updater) UpdateLeague(ctx context.Context, league games.League, from time.Time, daysAhead int) (int, error) {
	c, ok := u.collectors[league]
	if !ok {
		return 0, fmt.Errorf("%w: %s", games.ErrUnknownLeague, league)
	}
	log := logging.FromContext(ctx, u.logger)
	if log != nil {
		log = log.With(logging.FieldLeague, league.String())
	}

	start := timeutil.In(from, u.loc)
	stored := 0
	for d := 0; d <= daysAhead; d++ {
		date := timeutil.FormatDate(start.AddDate(0, 0, d))
		if !u.budget.CanRequest(league) {
			logging.Warn(log, "schedule refresh stopped, budget exhausted",
				logging.FieldDate, date,
				logging.FieldWait, u.budget.Wait(league).String(),
			)
			return stored, ErrBudgetExhausted
		}

		snaps, err := u.fetch(ctx, c, date)
		if err != nil {
			logging.Warn(log, "schedule fetch failed", logging.FieldDate, date, logging.FieldError, err)
			return stored, fmt.Errorf("%s schedule for %s: %w", league, date, err)
		}
		n := u.reconcile(ctx, league, snaps, log)
		stored += n
		logging.Info(log, "schedule refreshed", logging.FieldDate, date, logging.FieldCount, n)
	}
	return stored, nil
}

// UpdateAll refreshes every league from today. Failures are logged and leave
// that league's partial count in the result.
func (u *Updater) UpdateAll(ctx context.Context, daysAhead int) map[games.League]int {
	now := u.now()
	results := make(map[games.League]int, len(u.order))
	for _, league := range u.order {
		n, err := u.UpdateLeague(ctx, league, now, daysAhead)
		if err != nil {
			logging.Error(u.logger, "league schedule refresh incomplete", err, logging.FieldLeague, league.String())
		}
		results[league] = n
	}
	return results
}

// Refresh runs UpdateAll with the configured horizon and fires the hook.
func (u *Updater) Refresh(ctx context.Context) map[games.League]int {
	results := u.UpdateAll(ctx, u.daysAhead)
	if u.onUpdated != nil {
		u.onUpdated(ctx, results)
	}
	return results
}

func (u *Updater) fetch(ctx context.Context, c collectors.Collector, date string) ([]games.Snapshot, error) {
	league := c.League()
	started := time.Now()
	snaps, err := c.FetchSchedule(ctx, date)
	if errors.Is(err, collectors.ErrCircuitOpen) {
		return nil, err
	}

	u.budget.Record(league)
	attempt := usage.Attempt{
		League:     league,
		Endpoint:   endpointSchedule,
		Success:    err == nil,
		StatusCode: collectors.StatusCode(err),
		Latency:    time.Since(started),
		At:         u.now(),
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	u.usage.Record(ctx, attempt)

	if rl, ok := collectors.AsRateLimitError(err); ok {
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = rateLimitCooldown
		}
		u.budget.Cooldown(league, wait)
	}
	return snaps, err
}

func (u *Updater) reconcile(ctx context.Context, league games.League, snaps []games.Snapshot, log *slog.Logger) int {
	now := u.now()
	stored := 0
	for _, snap := range snaps {
		snap.League = league
		if snap.CapturedAt.IsZero() {
			snap.CapturedAt = now
		}
		snap = snap.Normalize()
		if err := snap.Validate(); err != nil {
			logging.Error(log, "discarding invalid scheduled game", err, logging.FieldGameID, snap.GameID)
			continue
		}
		if err := u.store.Upsert(ctx, snap); err != nil {
			logging.Error(log, "scheduled game upsert failed", err, logging.FieldGameID, snap.GameID)
			continue
		}
		stored++
	}
	return stored
}
