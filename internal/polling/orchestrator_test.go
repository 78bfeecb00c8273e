package polling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/metrics"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/teststubs"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

type fleet struct {
	clock   *testutil.Clock
	budget  *budget.Budget
	usage   *usage.Recorder
	store   *store.MemoryStore
	metrics *metrics.Recorder
}

func newFleet() *fleet {
	clock := testutil.NewClock(time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC))
	return &fleet{
		clock:   clock,
		budget:  budget.New(nil, budget.WithClock(clock.Now), budget.WithDefaultLimit(10)),
		usage:   usage.NewRecorder(usage.WithClock(clock.Now)),
		store:   store.NewMemoryStore(),
		metrics: metrics.NewRecorder(),
	}
}

func (f *fleet) poller(t *testing.T, c *teststubs.StubCollector, policy IntervalPolicy, s Store) *LeaguePoller {
	t.Helper()
	if s == nil {
		s = f.store
	}
	p, err := NewLeaguePoller(LeaguePollerConfig{
		Collector: c,
		Policy:    policy,
		Budget:    f.budget,
		Usage:     f.usage,
		Store:     s,
		Metrics:   f.metrics,
		Location:  time.UTC,
		Now:       f.clock.Now,
	})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	return p
}

func (f *fleet) seed(t *testing.T, snaps ...games.Snapshot) {
	t.Helper()
	for _, s := range snaps {
		if err := f.store.Upsert(context.Background(), s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

// sleepRecorder stands in for time.After: it records each requested sleep and
// cancels the run after the given number of sleeps.
type sleepRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	limit  int
	cancel context.CancelFunc
}

func (r *sleepRecorder) after(d time.Duration) <-chan time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	if len(r.sleeps) >= r.limit {
		r.cancel()
		return make(chan time.Time)
	}
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func TestPollOnceIsolatesLeagueFailures(t *testing.T) {
	f := newFleet()
	nhl := &teststubs.StubCollector{LeagueID: games.LeagueNHL, Err: context.DeadlineExceeded}
	mlb := &teststubs.StubCollector{LeagueID: games.LeagueMLB, Live: []games.Snapshot{
		testutil.LiveSnapshot(games.LeagueMLB, "m1", today, 3, 2),
	}}
	f.seed(t,
		testutil.LiveSnapshot(games.LeagueNHL, "h1", today, 1, 1),
		testutil.SampleSnapshot(games.LeagueMLB, "m1", today),
	)

	o, err := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, nhl, nbaPolicy(), nil), f.poller(t, mlb, nbaPolicy(), nil)},
		Metrics: f.metrics,
		Now:     f.clock.Now,
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}

	got := o.PollOnce(context.Background(), nil)
	if got[games.LeagueNHL] != 0 || got[games.LeagueMLB] != 1 {
		t.Fatalf("expected NHL 0 and MLB 1, got %v", got)
	}
	if n, fails := f.usage.Daily(games.LeagueNHL); n != 1 || fails != 1 {
		t.Fatalf("expected NHL failure recorded, got %d/%d", n, fails)
	}
	if f.metrics.Cycles() != 1 {
		t.Fatalf("expected one cycle recorded, got %d", f.metrics.Cycles())
	}

	st := o.Status()
	if st.Cycles != 1 || st.LastCycleID == "" || len(st.Leagues) != 2 {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Leagues[0].LastResult == nil || st.Leagues[0].LastResult.Outcome != OutcomeFailed {
		t.Fatalf("expected NHL failure in status, got %+v", st.Leagues[0])
	}
	if st.State != StateIdle {
		t.Fatalf("single pass must not change loop state, got %s", st.State)
	}
}

func TestPollOnceFiltersLeagues(t *testing.T) {
	f := newFleet()
	nba := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	nhl := &teststubs.StubCollector{LeagueID: games.LeagueNHL}
	f.seed(t,
		testutil.SampleSnapshot(games.LeagueNBA, "a", today),
		testutil.SampleSnapshot(games.LeagueNHL, "b", today),
	)
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, nba, nbaPolicy(), nil), f.poller(t, nhl, nbaPolicy(), nil)},
		Now:     f.clock.Now,
	})

	got := o.PollOnce(context.Background(), []games.League{games.LeagueNHL, games.LeagueNHL, games.LeagueWNBA})
	if len(got) != 1 || nba.LiveCalls.Load() != 0 || nhl.LiveCalls.Load() != 1 {
		t.Fatalf("expected only NHL polled once, got %v", got)
	}
}

func TestForceUpdateBypassesWindowOnly(t *testing.T) {
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	f.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "a", today))
	w := ParseWindow([]string{"12:00-14:00"}, time.UTC, nil)
	p, _ := NewLeaguePoller(LeaguePollerConfig{
		Collector: c, Policy: nbaPolicy(), Budget: f.budget, Store: f.store,
		Window: &w, Location: time.UTC, Now: f.clock.Now,
	})
	o, _ := NewOrchestrator(OrchestratorConfig{Pollers: []*LeaguePoller{p}, Now: f.clock.Now})

	o.PollOnce(context.Background(), nil)
	if c.LiveCalls.Load() != 0 {
		t.Fatalf("expected window to block a normal pass")
	}
	o.ForceUpdate(context.Background(), nil)
	if c.LiveCalls.Load() != 1 {
		t.Fatalf("expected force update to poll")
	}

	for i := 0; i < 10; i++ {
		f.budget.Record(games.LeagueNBA)
	}
	results := o.Poll(context.Background(), nil, PollOptions{IgnoreWindow: true})
	if results[games.LeagueNBA].Outcome != OutcomeBudgetExhausted {
		t.Fatalf("expected force update to respect budget, got %+v", results[games.LeagueNBA])
	}
}

func TestRunSleepsShortestIntervalAcrossLeagues(t *testing.T) {
	f := newFleet()
	nba := &teststubs.StubCollector{LeagueID: games.LeagueNBA, Live: []games.Snapshot{
		testutil.LiveSnapshot(games.LeagueNBA, "close", today, 50, 48),
	}}
	nfl := &teststubs.StubCollector{LeagueID: games.LeagueNFL}
	f.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "close", today))
	heartbeat := nbaPolicy()
	heartbeat.Heartbeat = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &sleepRecorder{limit: 1, cancel: cancel}
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, nba, nbaPolicy(), nil), f.poller(t, nfl, heartbeat, nil)},
		Now:     f.clock.Now,
		After:   rec.after,
	})

	if err := o.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := rec.recorded(); len(got) != 1 || got[0] != 60*time.Second {
		t.Fatalf("expected a single 60s sleep, got %v", got)
	}
	st := o.Status()
	if st.State != StateStopped || st.StopReason != StopReasonCanceled || st.Cycles != 1 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestRunEndsWhenNoLeagueHasWork(t *testing.T) {
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	f.seed(t, testutil.FinalSnapshot(games.LeagueNBA, "a", today, 100, 90))
	rec := &sleepRecorder{limit: 1, cancel: func() {}}
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, c, nbaPolicy(), nil)},
		Now:     f.clock.Now,
		After:   rec.after,
	})

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	st := o.Status()
	if st.State != StateStopped || st.StopReason != StopReasonIdle {
		t.Fatalf("expected idle stop, got %+v", st)
	}
	if len(rec.recorded()) != 0 || c.LiveCalls.Load() != 0 {
		t.Fatalf("expected no sleep and no upstream call")
	}
}

func TestRunFloorsSleep(t *testing.T) {
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	f.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "a", today, 1, 1))
	fast := nbaPolicy()
	fast.CloseGameInterval = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &sleepRecorder{limit: 1, cancel: cancel}
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, c, fast, nil)},
		Now:     f.clock.Now,
		After:   rec.after,
	})
	_ = o.Run(ctx)

	if got := rec.recorded(); len(got) != 1 || got[0] != DefaultMinSleep {
		t.Fatalf("expected sleep floored at %s, got %v", DefaultMinSleep, got)
	}
}

func TestRunSleepsOffHoursWithoutTouchingLeagues(t *testing.T) {
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	f.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "a", today, 1, 1))
	w := ParseWindow([]string{"12:00-14:00"}, time.UTC, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &sleepRecorder{limit: 2, cancel: cancel}
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, c, nbaPolicy(), nil)},
		Window:  &w,
		Now:     f.clock.Now,
		After:   rec.after,
	})
	_ = o.Run(ctx)

	got := rec.recorded()
	if len(got) != 2 || got[0] != DefaultOffHoursSleep || got[1] != DefaultOffHoursSleep {
		t.Fatalf("expected two off-hours sleeps, got %v", got)
	}
	if c.LiveCalls.Load() != 0 || o.Status().Cycles != 0 {
		t.Fatalf("expected no league touched outside the window")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFleet()
	block := make(chan struct{})
	notify := make(chan struct{})
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA, Block: block, Notify: notify}
	f.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "a", today, 1, 1))
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, c, nbaPolicy(), nil)},
		Now:     f.clock.Now,
	})

	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	select {
	case <-notify:
	case <-time.After(2 * time.Second):
		t.Fatalf("poll never started")
	}

	stopErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stopErr <- o.Stop(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for o.State() != StateStopping {
		if time.Now().After(deadline) {
			t.Fatalf("expected stopping state, got %s", o.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(block)

	if err := <-stopErr; err != nil {
		t.Fatalf("stop: %v", err)
	}
	st := o.Status()
	if st.State != StateStopped || st.StopReason != StopReasonStopped {
		t.Fatalf("unexpected final status %+v", st)
	}
	if st.Leagues[0].LastResult == nil || st.Leagues[0].LastResult.Outcome != OutcomeFetched {
		t.Fatalf("expected in-flight poll to complete, got %+v", st.Leagues[0].LastResult)
	}

	// A stopped loop can be started again.
	c.Block = nil
	ctx, cancel := context.WithCancel(context.Background())
	if err := o.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	cancel()
	select {
	case <-o.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("restarted loop did not exit on cancel")
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	f := newFleet()
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, &teststubs.StubCollector{LeagueID: games.LeagueNBA}, nbaPolicy(), nil)},
	})
	if err := o.Stop(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if o.State() != StateIdle {
		t.Fatalf("expected idle, got %s", o.State())
	}
}

type panickingStore struct{ store.MemoryStore }

func (p *panickingStore) QueryActive(context.Context, games.League, string, string) ([]games.Snapshot, error) {
	panic("store exploded")
}

func TestCyclePanicIsolation(t *testing.T) {
	f := newFleet()
	bad := &teststubs.StubCollector{LeagueID: games.LeagueNHL}
	good := &teststubs.StubCollector{LeagueID: games.LeagueMLB, Live: []games.Snapshot{
		testutil.LiveSnapshot(games.LeagueMLB, "m", today, 1, 0),
	}}
	f.seed(t, testutil.SampleSnapshot(games.LeagueMLB, "m", today))

	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{
			f.poller(t, bad, nbaPolicy(), &panickingStore{}),
			f.poller(t, good, nbaPolicy(), nil),
		},
		Now: f.clock.Now,
	})

	results := o.Poll(context.Background(), nil, PollOptions{})
	if results[games.LeagueNHL].Outcome != OutcomeFailed || results[games.LeagueNHL].Err == nil {
		t.Fatalf("expected NHL panic reported as failure, got %+v", results[games.LeagueNHL])
	}
	if results[games.LeagueMLB].Updated != 1 {
		t.Fatalf("expected MLB unaffected, got %+v", results[games.LeagueMLB])
	}
}

func TestReadinessTracksFailingCycles(t *testing.T) {
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA, Err: errors.New("boom")}
	f.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "a", today, 1, 1))
	o, _ := NewOrchestrator(OrchestratorConfig{
		Pollers: []*LeaguePoller{f.poller(t, c, nbaPolicy(), nil)},
		Now:     f.clock.Now,
	})

	for i := 0; i < 3; i++ {
		o.PollOnce(context.Background(), nil)
	}
	if o.Status().IsReady() {
		t.Fatalf("expected not ready after three failing cycles")
	}
	c.Err = nil
	o.PollOnce(context.Background(), nil)
	if !o.Status().IsReady() {
		t.Fatalf("expected ready after a good cycle")
	}
}

func TestNewOrchestratorValidates(t *testing.T) {
	if _, err := NewOrchestrator(OrchestratorConfig{}); err == nil {
		t.Fatalf("expected empty poller list rejected")
	}
	f := newFleet()
	c := &teststubs.StubCollector{LeagueID: games.LeagueNBA}
	p := f.poller(t, c, nbaPolicy(), nil)
	if _, err := NewOrchestrator(OrchestratorConfig{Pollers: []*LeaguePoller{p, p}}); err == nil {
		t.Fatalf("expected duplicate league rejected")
	}
}
