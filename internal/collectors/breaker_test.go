package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/teststubs"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	stub := &teststubs.StubCollector{LeagueID: games.LeagueNBA, Err: errors.New("timeout")}
	c := WithBreaker(stub, BreakerSettings{Timeout: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		if _, err := c.FetchLive(context.Background(), "2024-01-01"); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("breaker opened too early on call %d", i)
		}
	}
	_, err := c.FetchLive(context.Background(), "2024-01-01")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if stub.LiveCalls.Load() != 3 {
		t.Fatalf("expected open breaker not to reach upstream, calls=%d", stub.LiveCalls.Load())
	}
}

func TestBreakerIgnoresRateLimits(t *testing.T) {
	stub := &teststubs.StubCollector{LeagueID: games.LeagueNHL, Err: &RateLimitError{StatusCode: 429}}
	c := WithBreaker(stub, BreakerSettings{}, nil)

	for i := 0; i < 5; i++ {
		_, err := c.FetchSchedule(context.Background(), "2024-01-01")
		if errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("rate limits should not trip the breaker")
		}
	}
}

func TestBreakerPassesThroughResults(t *testing.T) {
	stub := &teststubs.StubCollector{LeagueID: games.LeagueMLB, Live: []games.Snapshot{{GameID: "1"}}}
	c := WithBreaker(stub, BreakerSettings{}, nil)

	got, err := c.FetchLive(context.Background(), "2024-01-01")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected passthrough, got %v %v", got, err)
	}
	if c.League() != games.LeagueMLB || ProviderName(c) != "stub" {
		t.Fatalf("unexpected identity %s/%s", c.League(), ProviderName(c))
	}
}
