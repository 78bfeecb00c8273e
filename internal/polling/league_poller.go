package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

// DefaultRateLimitCooldown applies when a 429 carries no Retry-After.
const DefaultRateLimitCooldown = 2 * time.Minute

const (
	endpointLive     = "live"
	endpointSchedule = "schedule"
)

// Outcome classifies what one poll did.
type Outcome string

const (
	OutcomeOutsideWindow   Outcome = "outside_window"
	OutcomeNoGames         Outcome = "no_games"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	OutcomeCoolingDown     Outcome = "cooling_down"
	OutcomeCircuitOpen     Outcome = "circuit_open"
	OutcomeFetched         Outcome = "fetched"
	OutcomeDiscovered      Outcome = "discovered"
	OutcomeFailed          Outcome = "failed"
)

// Store is the slice of the game store the pollers need.
type Store interface {
	Upsert(ctx context.Context, snap games.Snapshot) error
	QueryActive(ctx context.Context, league games.League, from, to string) ([]games.Snapshot, error)
}

// Publisher fans reconciled snapshots out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, snap games.Snapshot) error
}

// PollOptions adjusts a single poll.
type PollOptions struct {
	// IgnoreWindow skips the time-of-day gate. The budget still applies.
	IgnoreWindow bool
}

// Result reports one poll of one league.
type Result struct {
	League  games.League  `json:"league"`
	Updated int           `json:"updated"`
	Failed  int           `json:"failed"`
	Outcome Outcome       `json:"outcome"`
	Err     error         `json:"-"`
	Error   string        `json:"error,omitempty"`
	Wait    time.Duration `json:"wait,omitempty"`
	At      time.Time     `json:"at"`
}

// LeaguePollerConfig wires a LeaguePoller. Collector, Budget and Store are required.
type LeaguePollerConfig struct {
	Collector collectors.Collector
	Policy    IntervalPolicy
	Budget    *budget.Budget
	Usage     *usage.Recorder
	Store     Store
	// Window gates polls by time of day; nil leaves the league always open.
	Window            *Window
	Publisher         Publisher
	Logger            *slog.Logger
	Metrics           *metrics.Recorder
	Location          *time.Location
	Now               func() time.Time
	RateLimitCooldown time.Duration
}

// LeaguePoller runs single polls for one league. Polls of the same league
// never overlap.
type LeaguePoller struct {
	league    games.League
	collector collectors.Collector
	policy    IntervalPolicy
	budget    *budget.Budget
	usage     *usage.Recorder
	store     Store
	window    *Window
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Recorder
	loc       *time.Location
	now       func() time.Time
	cooldown  time.Duration

	runMu         sync.Mutex
	lastDiscovery time.Time

	stateMu      sync.RWMutex
	lastResult   Result
	lastDecision *Decision
}

// NewLeaguePoller validates cfg and builds a poller for the collector's league.
func NewLeaguePoller(cfg LeaguePollerConfig) (*LeaguePoller, error) {
	if cfg.Collector == nil {
		return nil, errors.New("league poller requires a collector")
	}
	if cfg.Budget == nil {
		return nil, errors.New("league poller requires a budget")
	}
	if cfg.Store == nil {
		return nil, errors.New("league poller requires a store")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("%s policy: %w", cfg.Collector.League(), err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	cooldown := cfg.RateLimitCooldown
	if cooldown <= 0 {
		cooldown = DefaultRateLimitCooldown
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	league := cfg.Collector.League()
	return &LeaguePoller{
		league:    league,
		collector: cfg.Collector,
		policy:    cfg.Policy,
		budget:    cfg.Budget,
		usage:     cfg.Usage,
		store:     cfg.Store,
		window:    cfg.Window,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		loc:       loc,
		now:       now,
		cooldown:  cooldown,
	}, nil
}

// League returns the league this poller serves.
func (p *LeaguePoller) League() games.League { return p.league }

// Policy returns the interval policy.
func (p *LeaguePoller) Policy() IntervalPolicy { return p.policy }

// PollOnce gates, fetches and reconciles one round for the league. Failures
// come back in the Result; nothing panics or blocks on budget.
func (p *LeaguePoller) PollOnce(ctx context.Context, opts PollOptions) Result {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	res := p.poll(ctx, opts)
	if res.Err != nil {
		res.Error = res.Err.Error()
	}
	p.stateMu.Lock()
	p.lastResult = res
	p.stateMu.Unlock()
	return res
}

func (p *LeaguePoller) poll(ctx context.Context, opts PollOptions) Result {
	now := p.now()
	res := Result{League: p.league, At: now}
	log := logging.FromContext(ctx, p.logger)
	if log != nil {
		log = log.With(logging.FieldLeague, p.league.String())
	}

	if !opts.IgnoreWindow && p.window != nil && !p.window.Contains(now) {
		res.Outcome = OutcomeOutsideWindow
		return res
	}

	today := timeutil.Today(now, p.loc)
	active, err := p.store.QueryActive(ctx, p.league, timeutil.Yesterday(now, p.loc), today)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("query active games: %w", err)
		logging.Error(log, "active game lookup failed", err)
		return res
	}

	if len(active) == 0 {
		if !p.discoveryDue(now) {
			res.Outcome = OutcomeNoGames
			return res
		}
		if p.skipForBudget(&res, log) {
			return res
		}
		snaps, err := p.fetch(ctx, endpointSchedule, today, p.collector.FetchSchedule)
		p.stateMu.Lock()
		p.lastDiscovery = now
		p.stateMu.Unlock()
		if err != nil {
			p.fail(&res, err, today, log)
			return res
		}
		res.Updated, res.Failed = p.reconcile(ctx, snaps, now, log)
		res.Outcome = OutcomeDiscovered
		logging.Info(log, "discovery fetch complete",
			logging.FieldDate, today,
			logging.FieldCount, res.Updated,
			logging.FieldFailed, res.Failed,
		)
		return res
	}

	for i, date := range activeDates(active, today) {
		if i == 0 {
			if p.skipForBudget(&res, log) {
				return res
			}
		} else if !p.budget.CanRequest(p.league) {
			logging.Debug(log, "budget spent before all dates fetched", logging.FieldDate, date)
			break
		}

		snaps, err := p.fetch(ctx, endpointLive, date, p.collector.FetchLive)
		if err != nil {
			p.fail(&res, err, date, log)
			return res
		}
		written, failed := p.reconcile(ctx, snaps, now, log)
		res.Updated += written
		res.Failed += failed
	}

	res.Outcome = OutcomeFetched
	logging.Debug(log, "live poll complete",
		logging.FieldCount, res.Updated,
		logging.FieldFailed, res.Failed,
	)
	return res
}

// discoveryDue reports whether an idle league should look for new games.
// Only heartbeat leagues discover, at most once per heartbeat.
func (p *LeaguePoller) discoveryDue(now time.Time) bool {
	if p.policy.Heartbeat <= 0 {
		return false
	}
	p.stateMu.RLock()
	last := p.lastDiscovery
	p.stateMu.RUnlock()
	return last.IsZero() || now.Sub(last) >= p.policy.Heartbeat
}

func (p *LeaguePoller) skipForBudget(res *Result, log *slog.Logger) bool {
	if p.budget.CanRequest(p.league) {
		return false
	}
	res.Wait = p.budget.Wait(p.league)
	res.Outcome = OutcomeBudgetExhausted
	if p.budget.CoolingDown(p.league) {
		res.Outcome = OutcomeCoolingDown
	}
	p.metrics.RecordBudgetSkip(p.league.String())
	logging.Debug(log, "skipping poll, budget unavailable",
		logging.FieldOutcome, string(res.Outcome),
		logging.FieldWait, res.Wait.String(),
	)
	return true
}

type fetchFunc func(ctx context.Context, date string) ([]games.Snapshot, error)

// fetch performs one upstream attempt and books it against budget and usage.
// A short-circuited breaker never reached upstream, so it books nothing.
func (p *LeaguePoller) fetch(ctx context.Context, endpoint, date string, call fetchFunc) ([]games.Snapshot, error) {
	started := time.Now()
	snaps, err := guardFetch(ctx, date, call)
	if errors.Is(err, collectors.ErrCircuitOpen) {
		return nil, err
	}

	p.budget.Record(p.league)
	attempt := usage.Attempt{
		League:     p.league,
		Endpoint:   endpoint,
		Success:    err == nil,
		StatusCode: collectors.StatusCode(err),
		Latency:    time.Since(started),
		At:         p.now(),
	}
	if err != nil {
		attempt.Error = err.Error()
	}
	p.usage.Record(ctx, attempt)

	if rl, ok := collectors.AsRateLimitError(err); ok {
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = p.cooldown
		}
		p.budget.Cooldown(p.league, wait)
		p.metrics.RecordRateLimit(p.league.String(), wait)
	}
	return snaps, err
}

func guardFetch(ctx context.Context, date string, call fetchFunc) (snaps []games.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snaps, err = nil, fmt.Errorf("collector panicked: %v", r)
		}
	}()
	return call(ctx, date)
}

func (p *LeaguePoller) fail(res *Result, err error, date string, log *slog.Logger) {
	res.Err = err
	res.Outcome = OutcomeFailed
	if errors.Is(err, collectors.ErrCircuitOpen) {
		res.Outcome = OutcomeCircuitOpen
		logging.Debug(log, "collector circuit open", logging.FieldDate, date)
		return
	}
	logging.Warn(log, "collector fetch failed",
		logging.FieldDate, date,
		logging.FieldProvider, collectors.ProviderName(p.collector),
		logging.FieldError, err,
	)
}

// reconcile upserts snaps one by one. A bad snapshot is logged and counted;
// the rest of the batch still commits.
func (p *LeaguePoller) reconcile(ctx context.Context, snaps []games.Snapshot, now time.Time, log *slog.Logger) (written, failed int) {
	for _, snap := range snaps {
		snap.League = p.league
		if snap.CapturedAt.IsZero() {
			snap.CapturedAt = now
		}
		snap = snap.Normalize()
		if err := snap.Validate(); err != nil {
			failed++
			logging.Error(log, "discarding invalid snapshot", err, logging.FieldGameID, snap.GameID)
			continue
		}
		if err := p.store.Upsert(ctx, snap); err != nil {
			failed++
			logging.Error(log, "snapshot upsert failed", err, logging.FieldGameID, snap.GameID)
			continue
		}
		written++
		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, snap); err != nil {
				logging.Warn(log, "snapshot publish failed", logging.FieldGameID, snap.GameID, logging.FieldError, err)
			}
		}
	}
	p.metrics.RecordReconciled(p.league.String(), written, failed)
	return written, failed
}

// activeDates lists the distinct dates of active games, today first and the
// rest newest first.
func activeDates(active []games.Snapshot, today string) []string {
	seen := map[string]struct{}{}
	var rest []string
	hasToday := false
	for _, g := range active {
		if g.Date == today {
			hasToday = true
			continue
		}
		if _, ok := seen[g.Date]; ok {
			continue
		}
		seen[g.Date] = struct{}{}
		rest = append(rest, g.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(rest)))
	if hasToday {
		return append([]string{today}, rest...)
	}
	return rest
}

// NextInterval applies the policy to the league's tracked games now. A store
// failure falls back to the default interval.
func (p *LeaguePoller) NextInterval(ctx context.Context) Decision {
	now := p.now()
	active, err := p.store.QueryActive(ctx, p.league, timeutil.Yesterday(now, p.loc), timeutil.Today(now, p.loc))
	d := WaitFor(p.policy.DefaultInterval)
	if err != nil {
		logging.Warn(p.logger, "interval lookup failed, using default",
			logging.FieldLeague, p.league.String(),
			logging.FieldError, err,
		)
	} else {
		d = p.policy.Next(active, now)
	}
	if !d.Stop {
		p.metrics.RecordInterval(p.league.String(), d.Wait)
	}

	p.stateMu.Lock()
	p.lastDecision = &d
	p.stateMu.Unlock()
	return d
}

// Last returns the most recent poll result and interval decision.
func (p *LeaguePoller) Last() (Result, *Decision) {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	var d *Decision
	if p.lastDecision != nil {
		copied := *p.lastDecision
		d = &copied
	}
	return p.lastResult, d
}

// Budget returns the league's current budget window.
func (p *LeaguePoller) Budget() budget.Window {
	return p.budget.Usage(p.league)
}
