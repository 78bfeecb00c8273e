package usage

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/budget"
	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
)

func TestReporterJoinsBudgetAndCounters(t *testing.T) {
	clock := testutil.NewClock(time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC))
	b := budget.New(map[games.League]int{games.LeagueNBA: 10, games.LeagueNHL: 10}, budget.WithClock(clock.Now))
	rec := NewRecorder(WithClock(clock.Now))
	logger, _ := testutil.NewBufferLogger()
	r := NewReporter(rec, b, NewMonitor(logger), []games.League{games.LeagueNBA, games.LeagueNHL})

	for i := 0; i < 10; i++ {
		b.Record(games.LeagueNBA)
		rec.Record(context.Background(), Attempt{League: games.LeagueNBA, Endpoint: "live", Success: i != 0})
	}

	rep := r.Report()
	if len(rep.Leagues) != 2 {
		t.Fatalf("expected both leagues, got %d", len(rep.Leagues))
	}
	nba := rep.Leagues[0]
	if nba.League != games.LeagueNBA || nba.RequestsLastMinute != 10 || nba.DailyRequests != 10 || nba.DailyFailures != 1 {
		t.Fatalf("unexpected NBA stats %+v", nba)
	}
	if len(rep.Alerts) != 1 || rep.Alerts[0].League != games.LeagueNBA {
		t.Fatalf("expected one NBA alert, got %+v", rep.Alerts)
	}
	if len(rep.Recommendations) == 0 {
		t.Fatalf("expected a recommendation for the saturated league")
	}

	if got := len(rep.Recent[games.LeagueNBA]); got != recentAttempts {
		t.Fatalf("expected %d recent NBA attempts, got %d", recentAttempts, got)
	}
	if _, ok := rep.Recent[games.LeagueNHL]; ok {
		t.Fatalf("expected no recent attempts for an idle league")
	}

	if again := r.Report(); len(again.Alerts) != 0 {
		t.Fatalf("expected alert raised once, got %+v", again.Alerts)
	}
}
