package polling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
)

const (
	// DefaultOffHoursSleep is how long the loop naps while the window is closed.
	DefaultOffHoursSleep = 5 * time.Minute
	// DefaultMinSleep floors the sleep between cycles.
	DefaultMinSleep = 5 * time.Second

	failingCycleThreshold = 3
)

// ErrAlreadyRunning is returned when Run or Start is called on a live loop.
var ErrAlreadyRunning = errors.New("orchestrator already running")

// State is the orchestrator lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

// Stop reasons reported in Status.
const (
	StopReasonIdle     = "idle"
	StopReasonStopped  = "stopped"
	StopReasonCanceled = "canceled"
)

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Pollers []*LeaguePoller
	// Window is the process-wide gate; nil keeps the loop always open.
	Window        *Window
	OffHoursSleep time.Duration
	MinSleep      time.Duration
	Logger        *slog.Logger
	Metrics       *metrics.Recorder
	Now           func() time.Time
	// After replaces time.After, mainly for tests.
	After func(time.Duration) <-chan time.Time
}

// Orchestrator drives every league poller in cycles and sleeps for the
// shortest interval any league asks for.
type Orchestrator struct {
	pollers  []*LeaguePoller
	byLeague map[games.League]*LeaguePoller
	window   *Window
	offHours time.Duration
	minSleep time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time

	mu            sync.Mutex
	state         State
	stopCh        chan struct{}
	done          chan struct{}
	stopReason    string
	cycles        int
	failingCycles int
	lastCycleID   string
	lastStart     time.Time
	lastEnd       time.Time
	nextWake      time.Time
}

// NewOrchestrator builds an orchestrator over pollers, one per league.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if len(cfg.Pollers) == 0 {
		return nil, errors.New("orchestrator requires at least one league poller")
	}
	byLeague := make(map[games.League]*LeaguePoller, len(cfg.Pollers))
	for _, p := range cfg.Pollers {
		if p == nil {
			return nil, errors.New("orchestrator given a nil league poller")
		}
		if _, dup := byLeague[p.League()]; dup {
			return nil, fmt.Errorf("duplicate poller for league %s", p.League())
		}
		byLeague[p.League()] = p
	}
	o := &Orchestrator{
		pollers:  cfg.Pollers,
		byLeague: byLeague,
		window:   cfg.Window,
		offHours: cfg.OffHoursSleep,
		minSleep: cfg.MinSleep,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
		after:    cfg.After,
		state:    StateIdle,
	}
	if o.offHours <= 0 {
		o.offHours = DefaultOffHoursSleep
	}
	if o.minSleep <= 0 {
		o.minSleep = DefaultMinSleep
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.after == nil {
		o.after = time.After
	}
	return o, nil
}

// Leagues lists the polled leagues in configuration order.
func (o *Orchestrator) Leagues() []games.League {
	out := make([]games.League, len(o.pollers))
	for i, p := range o.pollers {
		out[i] = p.League()
	}
	return out
}

// Poller returns the poller for league.
func (o *Orchestrator) Poller(league games.League) (*LeaguePoller, bool) {
	p, ok := o.byLeague[league]
	return p, ok
}

// Run blocks, polling in cycles until every league stops, ctx ends, or Stop
// is called. An in-flight cycle always completes.
func (o *Orchestrator) Run(ctx context.Context) error {
	stopCh, err := o.begin()
	if err != nil {
		return err
	}
	o.loop(ctx, stopCh)
	return nil
}

// Start runs the loop in the background.
func (o *Orchestrator) Start(ctx context.Context) error {
	stopCh, err := o.begin()
	if err != nil {
		return err
	}
	go o.loop(ctx, stopCh)
	return nil
}

// Stop asks the loop to exit and waits for it, or for ctx to expire.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateRunning && o.state != StateStopping {
		o.mu.Unlock()
		return nil
	}
	if o.state == StateRunning {
		o.state = StateStopping
		close(o.stopCh)
	}
	done := o.done
	o.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Done is closed when the current loop exits. Nil before the first start.
func (o *Orchestrator) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

func (o *Orchestrator) begin() (chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning || o.state == StateStopping {
		return nil, ErrAlreadyRunning
	}
	o.state = StateRunning
	o.stopCh = make(chan struct{})
	o.done = make(chan struct{})
	o.stopReason = ""
	o.nextWake = time.Time{}
	return o.stopCh, nil
}

func (o *Orchestrator) finish(reason string) {
	o.mu.Lock()
	o.state = StateStopped
	o.stopReason = reason
	o.nextWake = time.Time{}
	close(o.done)
	o.mu.Unlock()
	logging.Info(o.logger, "polling loop stopped", "reason", reason)
}

func (o *Orchestrator) loop(ctx context.Context, stopCh chan struct{}) {
	logging.Info(o.logger, "polling loop started", "leagues", len(o.pollers))
	reason := o.cycleUntilDone(ctx, stopCh)
	o.finish(reason)
}

func (o *Orchestrator) cycleUntilDone(ctx context.Context, stopCh chan struct{}) string {
	// In-flight polls keep running through a stop; collectors bound them with
	// their own timeouts.
	pollCtx := context.WithoutCancel(ctx)
	for {
		if reason := stopped(ctx, stopCh); reason != "" {
			return reason
		}

		if o.window != nil && !o.window.Contains(o.now()) {
			logging.Debug(o.logger, "outside polling window, sleeping",
				logging.FieldWait, o.offHours.String(),
			)
			if reason := o.sleep(ctx, stopCh, o.offHours); reason != "" {
				return reason
			}
			continue
		}

		o.cycle(pollCtx, o.pollers, PollOptions{})

		wait, ok := o.nextSleep(pollCtx)
		if !ok {
			logging.Info(o.logger, "no league has work left")
			return StopReasonIdle
		}
		if reason := o.sleep(ctx, stopCh, wait); reason != "" {
			return reason
		}
	}
}

func stopped(ctx context.Context, stopCh chan struct{}) string {
	select {
	case <-stopCh:
		return StopReasonStopped
	case <-ctx.Done():
		return StopReasonCanceled
	default:
		return ""
	}
}

func (o *Orchestrator) sleep(ctx context.Context, stopCh chan struct{}, d time.Duration) string {
	o.mu.Lock()
	o.nextWake = o.now().Add(d)
	o.mu.Unlock()

	select {
	case <-stopCh:
		return StopReasonStopped
	case <-ctx.Done():
		return StopReasonCanceled
	case <-o.after(d):
		return ""
	}
}

// nextSleep is the smallest non-stop interval across leagues, floored at
// minSleep. ok is false when every league says stop.
func (o *Orchestrator) nextSleep(ctx context.Context) (time.Duration, bool) {
	var (
		best  time.Duration
		found bool
	)
	for _, p := range o.pollers {
		d := o.decideSafely(ctx, p)
		if d.Stop {
			continue
		}
		if !found || d.Wait < best {
			best, found = d.Wait, true
		}
	}
	if !found {
		return 0, false
	}
	if best < o.minSleep {
		best = o.minSleep
	}
	return best, true
}

func (o *Orchestrator) decideSafely(ctx context.Context, p *LeaguePoller) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(o.logger, "interval decision panicked", fmt.Errorf("%v", r),
				logging.FieldLeague, p.League().String(),
			)
			d = WaitFor(p.Policy().DefaultInterval)
		}
	}()
	return p.NextInterval(ctx)
}

// cycle polls pollers concurrently, one goroutine per league.
func (o *Orchestrator) cycle(ctx context.Context, pollers []*LeaguePoller, opts PollOptions) map[games.League]Result {
	cycleID := uuid.NewString()
	log := o.logger
	if log != nil {
		log = log.With(logging.FieldCycleID, cycleID)
	}
	ctx = logging.WithLogger(ctx, log)
	started := o.now()

	results := make(map[games.League]Result, len(pollers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, p := range pollers {
		wg.Add(1)
		go func(p *LeaguePoller) {
			defer wg.Done()
			res := o.pollSafely(ctx, p, opts, log)
			mu.Lock()
			results[p.League()] = res
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	failed := 0
	for _, res := range results {
		if res.Outcome == OutcomeFailed {
			failed++
		}
	}
	ended := o.now()
	o.metrics.RecordPollerCycle(ended.Sub(started), failed)

	o.mu.Lock()
	o.cycles++
	o.lastCycleID = cycleID
	o.lastStart = started
	o.lastEnd = ended
	if failed > 0 && failed == len(results) {
		o.failingCycles++
	} else {
		o.failingCycles = 0
	}
	o.mu.Unlock()

	logging.Info(log, "poll cycle complete",
		logging.FieldCount, len(results),
		logging.FieldFailed, failed,
		logging.FieldDurationMS, ended.Sub(started).Milliseconds(),
	)
	return results
}

func (o *Orchestrator) pollSafely(ctx context.Context, p *LeaguePoller, opts PollOptions, log *slog.Logger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("league poll panicked: %v", r)
			logging.Error(log, "league poll panicked", err, logging.FieldLeague, p.League().String())
			res = Result{League: p.League(), Outcome: OutcomeFailed, Err: err, Error: err.Error(), At: o.now()}
		}
	}()
	return p.PollOnce(ctx, opts)
}

// Poll runs one cycle over leagues (all when empty) outside the loop.
// Unknown leagues are skipped.
func (o *Orchestrator) Poll(ctx context.Context, leagues []games.League, opts PollOptions) map[games.League]Result {
	return o.cycle(ctx, o.pollersFor(leagues), opts)
}

// PollOnce runs a single pass and returns updated counts per league.
func (o *Orchestrator) PollOnce(ctx context.Context, leagues []games.League) map[games.League]int {
	return counts(o.Poll(ctx, leagues, PollOptions{}))
}

// ForceUpdate polls now regardless of the time-of-day window. Budgets still apply.
func (o *Orchestrator) ForceUpdate(ctx context.Context, leagues []games.League) map[games.League]int {
	return counts(o.Poll(ctx, leagues, PollOptions{IgnoreWindow: true}))
}

func (o *Orchestrator) pollersFor(leagues []games.League) []*LeaguePoller {
	if len(leagues) == 0 {
		return o.pollers
	}
	out := make([]*LeaguePoller, 0, len(leagues))
	seen := make(map[games.League]struct{}, len(leagues))
	for _, l := range leagues {
		p, ok := o.byLeague[l]
		if !ok {
			logging.Warn(o.logger, "no poller configured for league", logging.FieldLeague, l.String())
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, p)
	}
	return out
}

func counts(results map[games.League]Result) map[games.League]int {
	out := make(map[games.League]int, len(results))
	for league, res := range results {
		out[league] = res.Updated
	}
	return out
}

// LeagueStatus is one league's view in Status.
type LeagueStatus struct {
	League       games.League  `json:"league"`
	LastResult   *Result       `json:"lastResult,omitempty"`
	LastDecision *Decision     `json:"lastDecision,omitempty"`
	Budget       budget.Window `json:"budget"`
}

// Status describes the loop and each league.
type Status struct {
	State                   State          `json:"state"`
	StopReason              string         `json:"stopReason,omitempty"`
	Cycles                  int            `json:"cycles"`
	ConsecutiveFailedCycles int            `json:"consecutiveFailedCycles"`
	LastCycleID             string         `json:"lastCycleId,omitempty"`
	LastCycleStart          time.Time      `json:"lastCycleStart,omitempty"`
	LastCycleEnd            time.Time      `json:"lastCycleEnd,omitempty"`
	NextWake                time.Time      `json:"nextWake,omitempty"`
	Window                  string         `json:"window,omitempty"`
	WithinWindow            bool           `json:"withinWindow"`
	Leagues                 []LeagueStatus `json:"leagues"`
}

// IsReady reports whether recent cycles are not failing across the board.
func (s Status) IsReady() bool {
	return s.ConsecutiveFailedCycles < failingCycleThreshold
}

// Status returns a snapshot of the loop state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	st := Status{
		State:                   o.state,
		StopReason:              o.stopReason,
		Cycles:                  o.cycles,
		ConsecutiveFailedCycles: o.failingCycles,
		LastCycleID:             o.lastCycleID,
		LastCycleStart:          o.lastStart,
		LastCycleEnd:            o.lastEnd,
		NextWake:                o.nextWake,
	}
	o.mu.Unlock()

	st.WithinWindow = true
	if o.window != nil {
		st.Window = o.window.String()
		st.WithinWindow = o.window.Contains(o.now())
	}
	st.Leagues = make([]LeagueStatus, 0, len(o.pollers))
	for _, p := range o.pollers {
		res, d := p.Last()
		ls := LeagueStatus{League: p.League(), LastDecision: d, Budget: p.Budget()}
		if !res.At.IsZero() {
			ls.LastResult = &res
		}
		st.Leagues = append(st.Leagues, ls)
	}
	return st
}
