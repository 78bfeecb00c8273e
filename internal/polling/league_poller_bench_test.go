package polling

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/store"
	"github.com/preston-bernstein/sports-data-service/internal/teststubs"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
	"github.com/preston-bernstein/sports-data-service/internal/usage"
)

func BenchmarkLeaguePollerPollOnce(b *testing.B) {
	now := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
	live := testutil.LiveSnapshot(games.LeagueNBA, "bench-game", "2024-01-02", 100, 95)
	live.CapturedAt = now

	st := store.NewMemoryStore()
	if err := st.Upsert(context.Background(), live); err != nil {
		b.Fatalf("seed: %v", err)
	}
	p, err := NewLeaguePoller(LeaguePollerConfig{
		Collector: &teststubs.StubCollector{LeagueID: games.LeagueNBA, Live: []games.Snapshot{live}},
		Policy: IntervalPolicy{
			CloseGameThreshold: 10,
			CloseGameInterval:  time.Minute,
			DefaultInterval:    2 * time.Minute,
			ScheduledInterval:  5 * time.Minute,
		},
		Budget:   budget.New(nil, budget.WithDefaultLimit(b.N+1), budget.WithClock(testutil.NowAt(now))),
		Usage:    usage.NewRecorder(usage.WithClock(testutil.NowAt(now)), usage.WithHistory(1)),
		Store:    st,
		Location: time.UTC,
		Now:      testutil.NowAt(now),
	})
	if err != nil {
		b.Fatalf("new poller: %v", err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.PollOnce(ctx, PollOptions{})
	}
}
