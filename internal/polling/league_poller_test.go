package polling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/collectors"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/teststubs"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

const (
	today     = "2024-01-02"
	yesterday = "2024-01-01"
)

type harness struct {
	clock     *testutil.Clock
	budget    *budget.Budget
	usage     *usage.Recorder
	store     *store.MemoryStore
	collector *teststubs.StubCollector
	publisher *teststubs.StubPublisher
	poller    *LeaguePoller
}

func newHarness(t *testing.T, league games.League, limit int, mutate func(*LeaguePollerConfig)) *harness {
	t.Helper()
	h := &harness{
		clock:     testutil.NewClock(time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)),
		store:     store.NewMemoryStore(),
		collector: &teststubs.StubCollector{LeagueID: league},
		publisher: &teststubs.StubPublisher{},
	}
	h.budget = budget.New(map[games.League]int{league: limit}, budget.WithClock(h.clock.Now))
	h.usage = usage.NewRecorder(usage.WithClock(h.clock.Now), usage.WithLocation(time.UTC))

	cfg := LeaguePollerConfig{
		Collector: h.collector,
		Policy:    nbaPolicy(),
		Budget:    h.budget,
		Usage:     h.usage,
		Store:     h.store,
		Publisher: h.publisher,
		Location:  time.UTC,
		Now:       h.clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := NewLeaguePoller(cfg)
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	h.poller = p
	return h
}

func (h *harness) seed(t *testing.T, snaps ...games.Snapshot) {
	t.Helper()
	for _, s := range snaps {
		if err := h.store.Upsert(context.Background(), s); err != nil {
			t.Fatalf("seed %s: %v", s.GameID, err)
		}
	}
}

func (h *harness) poll() Result {
	return h.poller.PollOnce(context.Background(), PollOptions{})
}

func TestPollOutsideWindowHasNoSideEffects(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, func(c *LeaguePollerConfig) {
		w := ParseWindow([]string{"12:00-14:00"}, time.UTC, nil)
		c.Window = &w
	})
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 50, 48))

	res := h.poll()
	if res.Outcome != OutcomeOutsideWindow || res.Updated != 0 {
		t.Fatalf("expected outside_window, got %+v", res)
	}
	if h.collector.LiveCalls.Load() != 0 || h.budget.Usage(games.LeagueNBA).InWindow != 0 {
		t.Fatalf("expected no collector call and no budget use")
	}
	if n, _ := h.usage.Daily(games.LeagueNBA); n != 0 {
		t.Fatalf("expected no usage recorded, got %d", n)
	}
}

func TestIgnoreWindowStillPolls(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, func(c *LeaguePollerConfig) {
		w := ParseWindow([]string{"12:00-14:00"}, time.UTC, nil)
		c.Window = &w
	})
	h.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "A", today))

	res := h.poller.PollOnce(context.Background(), PollOptions{IgnoreWindow: true})
	if res.Outcome != OutcomeFetched || h.collector.LiveCalls.Load() != 1 {
		t.Fatalf("expected forced fetch, got %+v", res)
	}
}

func TestPollSkipsRemoteCallWithoutGames(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t, testutil.FinalSnapshot(games.LeagueNBA, "done", today, 100, 90))

	res := h.poll()
	if res.Outcome != OutcomeNoGames {
		t.Fatalf("expected no_games, got %+v", res)
	}
	if h.collector.LiveCalls.Load() != 0 || h.collector.ScheduleCalls.Load() != 0 {
		t.Fatalf("expected no upstream calls")
	}
}

func TestPollFetchesAndReconciles(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "A", today))
	h.collector.Live = []games.Snapshot{
		testutil.LiveSnapshot(games.LeagueNBA, "A", today, 50, 48),
		testutil.LiveSnapshot(games.LeagueNBA, "B", today, 90, 60),
	}

	res := h.poll()
	if res.Outcome != OutcomeFetched || res.Updated != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	got, err := h.store.Get(context.Background(), games.LeagueNBA, "A")
	if err != nil || got.Status != games.StatusInProgress || got.HomeScore != 50 {
		t.Fatalf("expected A updated in place, got %+v (%v)", got, err)
	}
	if !got.CapturedAt.Equal(h.clock.Now()) {
		t.Fatalf("expected captured time stamped, got %v", got.CapturedAt)
	}
	if h.budget.Usage(games.LeagueNBA).InWindow != 1 {
		t.Fatalf("expected one budget record")
	}
	if n, f := h.usage.Daily(games.LeagueNBA); n != 1 || f != 0 {
		t.Fatalf("expected one successful attempt, got %d/%d", n, f)
	}
	if h.publisher.Count() != 2 {
		t.Fatalf("expected both snapshots published, got %d", h.publisher.Count())
	}
	if dates := h.collector.Dates(); len(dates) != 1 || dates[0] != today {
		t.Fatalf("expected fetch for today, got %v", dates)
	}
}

func TestPollIsIdempotent(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "A", today))
	h.collector.Live = []games.Snapshot{testutil.LiveSnapshot(games.LeagueNBA, "A", today, 10, 8)}

	h.poll()
	first, _ := h.store.QueryAll(context.Background(), games.LeagueNBA)
	h.poll()
	second, _ := h.store.QueryAll(context.Background(), games.LeagueNBA)

	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Fatalf("expected identical single row, got %+v then %+v", first, second)
	}
}

func TestPollBudgetExhaustedNeverCallsUpstream(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 2, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0))
	h.budget.Record(games.LeagueNBA)
	h.budget.Record(games.LeagueNBA)

	res := h.poll()
	if res.Outcome != OutcomeBudgetExhausted || res.Wait != time.Minute {
		t.Fatalf("expected budget_exhausted with a minute wait, got %+v", res)
	}
	if h.collector.LiveCalls.Load() != 0 {
		t.Fatalf("expected no collector call")
	}

	h.clock.Advance(61 * time.Second)
	if res := h.poll(); res.Outcome != OutcomeFetched {
		t.Fatalf("expected fetch once the window ages out, got %+v", res)
	}
}

func TestPollFailureRecordsAttempt(t *testing.T) {
	h := newHarness(t, games.LeagueNHL, 5, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNHL, "A", today, 1, 1))
	h.collector.Err = context.DeadlineExceeded

	res := h.poll()
	if res.Outcome != OutcomeFailed || res.Updated != 0 || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected failed result, got %+v", res)
	}
	if res.Error == "" {
		t.Fatalf("expected error text on result")
	}
	if h.budget.Usage(games.LeagueNHL).InWindow != 1 {
		t.Fatalf("expected the failed attempt to consume budget")
	}
	if n, f := h.usage.Daily(games.LeagueNHL); n != 1 || f != 1 {
		t.Fatalf("expected one failed attempt, got %d/%d", n, f)
	}
	recent := h.usage.Recent(games.LeagueNHL, 1)
	if len(recent) != 1 || recent[0].Success || recent[0].Endpoint != "live" {
		t.Fatalf("unexpected usage history %+v", recent)
	}
}

func TestPollRateLimitStartsCooldown(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 10, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0))
	h.collector.Err = &collectors.RateLimitError{League: games.LeagueNBA, StatusCode: 429, RetryAfter: 30 * time.Second}

	if res := h.poll(); res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed on 429, got %+v", res)
	}
	h.collector.Err = nil

	res := h.poll()
	if res.Outcome != OutcomeCoolingDown || res.Wait != 30*time.Second {
		t.Fatalf("expected cooling_down for 30s, got %+v", res)
	}
	if h.collector.LiveCalls.Load() != 1 {
		t.Fatalf("expected no call during cooldown")
	}

	h.clock.Advance(31 * time.Second)
	if res := h.poll(); res.Outcome != OutcomeFetched {
		t.Fatalf("expected fetch after cooldown, got %+v", res)
	}
}

func TestPollRateLimitWithoutRetryAfterUsesDefaultCooldown(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 10, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0))
	h.collector.Err = &collectors.RateLimitError{League: games.LeagueNBA, StatusCode: 429}

	h.poll()
	if until := h.budget.Usage(games.LeagueNBA).CooldownUntil; !until.Equal(h.clock.Now().Add(DefaultRateLimitCooldown)) {
		t.Fatalf("expected default cooldown, got %v", until)
	}
}

func TestPollCircuitOpenBooksNothing(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0))
	h.collector.Err = collectors.ErrCircuitOpen

	res := h.poll()
	if res.Outcome != OutcomeCircuitOpen {
		t.Fatalf("expected circuit_open, got %+v", res)
	}
	if h.budget.Usage(games.LeagueNBA).InWindow != 0 {
		t.Fatalf("expected no budget consumed by a short-circuited call")
	}
	if n, _ := h.usage.Daily(games.LeagueNBA); n != 0 {
		t.Fatalf("expected no usage recorded, got %d", n)
	}
}

func TestPollIsolatesSnapshotFailures(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	failing := &teststubs.FailingStore{Inner: h.store, FailIDs: map[string]error{"B": errors.New("disk full")}}
	p, err := NewLeaguePoller(LeaguePollerConfig{
		Collector: h.collector,
		Policy:    nbaPolicy(),
		Budget:    h.budget,
		Store:     failing,
		Location:  time.UTC,
		Now:       h.clock.Now,
	})
	if err != nil {
		t.Fatalf("new poller: %v", err)
	}
	h.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "A", today))
	bad := testutil.LiveSnapshot(games.LeagueNBA, "C", "not-a-date", 1, 1)
	h.collector.Live = []games.Snapshot{
		testutil.LiveSnapshot(games.LeagueNBA, "A", today, 3, 2),
		testutil.LiveSnapshot(games.LeagueNBA, "B", today, 3, 2),
		bad,
	}

	res := p.PollOnce(context.Background(), PollOptions{})
	if res.Outcome != OutcomeFetched || res.Updated != 1 || res.Failed != 2 {
		t.Fatalf("expected one write and two failures, got %+v", res)
	}
	if got, _ := h.store.Get(context.Background(), games.LeagueNBA, "A"); got.HomeScore != 3 {
		t.Fatalf("expected A committed despite batch failures, got %+v", got)
	}
}

func TestPollStoreQueryFailure(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, func(c *LeaguePollerConfig) {
		c.Store = &teststubs.FailingStore{Inner: store.NewMemoryStore(), QueryErr: errors.New("db down")}
	})

	res := h.poll()
	if res.Outcome != OutcomeFailed || h.collector.LiveCalls.Load() != 0 {
		t.Fatalf("expected failed without upstream call, got %+v", res)
	}
}

func TestPollFetchesEachActiveDateTodayFirst(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t,
		testutil.LiveSnapshot(games.LeagueNBA, "late", yesterday, 100, 99),
		testutil.SampleSnapshot(games.LeagueNBA, "tonight", today),
	)

	res := h.poll()
	if res.Outcome != OutcomeFetched {
		t.Fatalf("unexpected result %+v", res)
	}
	dates := h.collector.Dates()
	if len(dates) != 2 || dates[0] != today || dates[1] != yesterday {
		t.Fatalf("expected today then yesterday, got %v", dates)
	}
	if h.budget.Usage(games.LeagueNBA).InWindow != 2 {
		t.Fatalf("expected each date to consume budget")
	}
}

func TestPollStopsDatesWhenBudgetRunsOut(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 1, nil)
	h.seed(t,
		testutil.LiveSnapshot(games.LeagueNBA, "late", yesterday, 100, 99),
		testutil.SampleSnapshot(games.LeagueNBA, "tonight", today),
	)

	res := h.poll()
	if res.Outcome != OutcomeFetched || h.collector.LiveCalls.Load() != 1 {
		t.Fatalf("expected a single budgeted fetch, got %+v calls=%d", res, h.collector.LiveCalls.Load())
	}
}

func TestHeartbeatLeagueDiscoversOncePerHeartbeat(t *testing.T) {
	h := newHarness(t, games.LeagueNFL, 5, func(c *LeaguePollerConfig) {
		c.Policy.Heartbeat = time.Hour
	})

	res := h.poll()
	if res.Outcome != OutcomeDiscovered || h.collector.ScheduleCalls.Load() != 1 {
		t.Fatalf("expected discovery fetch, got %+v", res)
	}
	if dates := h.collector.Dates(); dates[0] != today {
		t.Fatalf("expected discovery for today, got %v", dates)
	}

	if res := h.poll(); res.Outcome != OutcomeNoGames {
		t.Fatalf("expected no repeat discovery inside the heartbeat, got %+v", res)
	}

	h.clock.Advance(time.Hour)
	h.collector.Schedule = []games.Snapshot{testutil.SampleSnapshot(games.LeagueNFL, "new", today)}
	res = h.poll()
	if res.Outcome != OutcomeDiscovered || res.Updated != 1 {
		t.Fatalf("expected discovered game stored, got %+v", res)
	}
	if recent := h.usage.Recent(games.LeagueNFL, 1); recent[0].Endpoint != "schedule" {
		t.Fatalf("expected schedule endpoint recorded, got %+v", recent)
	}
}

func TestPollRecoversFromCollectorPanic(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t, testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0))
	h.collector.Panic = true

	res := h.poll()
	if res.Outcome != OutcomeFailed || res.Err == nil {
		t.Fatalf("expected panic converted to failure, got %+v", res)
	}
}

func TestPollPublishFailureDoesNotFailPoll(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.publisher.Err = errors.New("redis down")
	h.seed(t, testutil.SampleSnapshot(games.LeagueNBA, "A", today))
	h.collector.Live = []games.Snapshot{testutil.LiveSnapshot(games.LeagueNBA, "A", today, 1, 0)}

	if res := h.poll(); res.Outcome != OutcomeFetched || res.Updated != 1 {
		t.Fatalf("expected publish errors ignored, got %+v", res)
	}
}

func TestNextIntervalReadsStore(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, nil)
	h.seed(t,
		testutil.LiveSnapshot(games.LeagueNBA, "A", today, 50, 48),
		testutil.LiveSnapshot(games.LeagueNBA, "B", today, 90, 60),
	)

	if d := h.poller.NextInterval(context.Background()); d != WaitFor(60*time.Second) {
		t.Fatalf("expected close-game interval, got %s", d)
	}
	if _, d := h.poller.Last(); d == nil || d.Wait != 60*time.Second {
		t.Fatalf("expected decision remembered, got %v", d)
	}
}

func TestNextIntervalFallsBackOnStoreError(t *testing.T) {
	h := newHarness(t, games.LeagueNBA, 5, func(c *LeaguePollerConfig) {
		c.Store = &teststubs.FailingStore{Inner: store.NewMemoryStore(), QueryErr: errors.New("db down")}
	})
	if d := h.poller.NextInterval(context.Background()); d != WaitFor(120*time.Second) {
		t.Fatalf("expected default interval, got %s", d)
	}
}

func TestNewLeaguePollerValidates(t *testing.T) {
	if _, err := NewLeaguePoller(LeaguePollerConfig{}); err == nil {
		t.Fatalf("expected missing collector rejected")
	}
	_, err := NewLeaguePoller(LeaguePollerConfig{
		Collector: &teststubs.StubCollector{LeagueID: games.LeagueNBA},
		Budget:    budget.New(nil),
		Store:     store.NewMemoryStore(),
	})
	if err == nil {
		t.Fatalf("expected zero policy rejected")
	}
}

func TestActiveDates(t *testing.T) {
	active := []games.Snapshot{
		{Date: "2024-01-01"}, {Date: today}, {Date: "2024-01-01"}, {Date: "2023-12-31"},
	}
	got := activeDates(active, today)
	want := []string{today, "2024-01-01", "2023-12-31"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
