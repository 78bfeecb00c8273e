package fixture

import (
	"context"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

func TestGamesFollowTheClock(t *testing.T) {
	c := New(games.LeagueNBA, time.UTC)

	c.now = func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC) }
	got, err := c.FetchSchedule(context.Background(), "2024-01-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Status != games.StatusScheduled || got[1].Status != games.StatusScheduled {
		t.Fatalf("expected two scheduled games before tip-off, got %+v", got)
	}
	if got[0].GameID != "fixture-2024-01-02-1" || got[0].HomeTeam != "BOS" {
		t.Fatalf("unexpected identity %+v", got[0])
	}

	c.now = func() time.Time { return time.Date(2024, 1, 2, 22, 30, 0, 0, time.UTC) }
	got, _ = c.FetchLive(context.Background(), "2024-01-02")
	if got[0].Status != games.StatusFinal || !got[0].IsFinal {
		t.Fatalf("expected first game final, got %+v", got[0])
	}
	if got[1].Status != games.StatusInProgress || got[1].Differential() > 1 {
		t.Fatalf("expected second game live and close, got %+v", got[1])
	}
}

func TestRejectsBadDateAndCancelledContext(t *testing.T) {
	c := New(games.LeagueNHL, nil)
	if _, err := c.FetchLive(context.Background(), "nope"); err == nil {
		t.Fatalf("expected date error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.FetchLive(ctx, "2024-01-02"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestIdentity(t *testing.T) {
	c := New(games.LeagueWNBA, time.UTC)
	if c.League() != games.LeagueWNBA || c.Provider() != "fixture" {
		t.Fatalf("unexpected identity %s/%s", c.League(), c.Provider())
	}
}
