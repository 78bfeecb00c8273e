package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/polling"
	"github.com/preston-bernstein/sports-data-service/internal/schedule"
	"github.com/preston-bernstein/sports-data-service/internal/testutil"
)

func TestAdminPoll(t *testing.T) {
	f := newFixture()
	f.poller.results = map[games.League]polling.Result{
		games.LeagueNBA: {League: games.LeagueNBA, Updated: 3, Outcome: polling.OutcomeFetched},
		games.LeagueNHL: {League: games.LeagueNHL, Updated: 1, Outcome: polling.OutcomeFetched},
	}

	rr := testutil.Serve(f.router, http.MethodPost, "/admin/poll?league=nba,nhl&force=true", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)

	var resp pollResponse
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Updated != 4 || !resp.Forced {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !f.poller.lastOpts.IgnoreWindow {
		t.Fatalf("expected force to ignore the window")
	}
	if len(f.poller.lastLeagues) != 2 || f.poller.lastLeagues[0] != games.LeagueNBA {
		t.Fatalf("expected parsed leagues, got %v", f.poller.lastLeagues)
	}
}

func TestAdminPollDefaultsAndErrors(t *testing.T) {
	f := newFixture()

	testutil.AssertStatus(t, testutil.Serve(f.router, http.MethodPost, "/admin/poll", nil), http.StatusOK)
	if f.poller.lastOpts.IgnoreWindow || f.poller.lastLeagues != nil {
		t.Fatalf("expected all leagues within the window by default")
	}

	testutil.AssertStatus(t, testutil.Serve(f.router, http.MethodPost, "/admin/poll?league=xfl", nil), http.StatusBadRequest)
}

func TestAdminStartStop(t *testing.T) {
	f := newFixture()
	f.poller.status.State = polling.StateIdle

	rr := testutil.Serve(f.router, http.MethodPost, "/admin/poller/start", nil)
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	if f.poller.starts != 1 {
		t.Fatalf("expected start called once")
	}

	f.poller.startErr = polling.ErrAlreadyRunning
	testutil.AssertStatus(t, testutil.Serve(f.router, http.MethodPost, "/admin/poller/start", nil), http.StatusConflict)

	rr = testutil.Serve(f.router, http.MethodPost, "/admin/poller/stop", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var body map[string]string
	testutil.DecodeJSON(t, rr, &body)
	if body["state"] != string(polling.StateStopped) {
		t.Fatalf("expected stopped state, got %v", body)
	}

	f.poller.stopErr = errors.New("deadline")
	testutil.AssertStatus(t, testutil.Serve(f.router, http.MethodPost, "/admin/poller/stop", nil), http.StatusGatewayTimeout)
}

func TestAdminRefreshSchedule(t *testing.T) {
	f := newFixture()
	f.scheduler.refreshed = map[games.League]int{games.LeagueNBA: 9}

	rr := testutil.Serve(f.router, http.MethodPost, "/admin/schedule/refresh", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	var all map[string]map[string]int
	testutil.DecodeJSON(t, rr, &all)
	if all["stored"]["NBA"] != 9 {
		t.Fatalf("expected refresh results, got %v", all)
	}

	f.scheduler.stored = 4
	testutil.AssertStatus(t, testutil.Serve(f.router, http.MethodPost, "/admin/schedule/refresh?league=nhl&days=3", nil), http.StatusOK)
	if f.scheduler.lastLeague != games.LeagueNHL || f.scheduler.lastDays != 3 {
		t.Fatalf("expected NHL for 3 days, got %s/%d", f.scheduler.lastLeague, f.scheduler.lastDays)
	}
}

func TestAdminRefreshScheduleErrors(t *testing.T) {
	f := newFixture()
	cases := []struct {
		path string
		err  error
		want int
	}{
		{"/admin/schedule/refresh?league=nope", nil, http.StatusBadRequest},
		{"/admin/schedule/refresh?league=nba&days=-1", nil, http.StatusBadRequest},
		{"/admin/schedule/refresh?league=nba&days=30", nil, http.StatusBadRequest},
		{"/admin/schedule/refresh?league=nba", schedule.ErrBudgetExhausted, http.StatusTooManyRequests},
		{"/admin/schedule/refresh?league=nba", games.ErrUnknownLeague, http.StatusNotFound},
		{"/admin/schedule/refresh?league=nba", errors.New("upstream 502"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		f.scheduler.updateErr = tc.err
		rr := testutil.Serve(f.router, http.MethodPost, tc.path, nil)
		if rr.Code != tc.want {
			t.Fatalf("%s (%v): expected %d, got %d", tc.path, tc.err, tc.want, rr.Code)
		}
	}
}

func TestAdminWithoutDependencies(t *testing.T) {
	a := NewAdminHandler(nil, nil, nil)
	for name, fn := range map[string]http.HandlerFunc{
		"poll":     a.Poll,
		"start":    a.StartPoller,
		"stop":     a.StopPoller,
		"schedule": a.RefreshSchedule,
	} {
		rr := testutil.Serve(fn, http.MethodPost, "/admin/x", nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", name, rr.Code)
		}
	}
}
