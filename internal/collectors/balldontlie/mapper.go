package balldontlie

import (
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

func mapGame(g gameResponse, requestedDate string, capturedAt time.Time) games.Snapshot {
	status := mapStatus(g.Status, g.Period)
	snap := games.Snapshot{
		League:       games.LeagueNBA,
		GameID:       strconv.Itoa(g.ID),
		Date:         mapDate(g.Date, requestedDate),
		Status:       status,
		HomeTeam:     teamLabel(g.HomeTeam),
		VisitorTeam:  teamLabel(g.VisitorTeam),
		HomeScore:    g.HomeTeamScore,
		VisitorScore: g.VisitorTeamScore,
		Period:       g.Period,
		Clock:        strings.TrimSpace(g.Time),
		IsFinal:      status == games.StatusFinal,
		IsOvertime:   g.Period > 4,
		StartTime:    startTime(g),
		CapturedAt:   capturedAt,
	}
	return snap.Normalize()
}

// mapStatus handles balldontlie's free-form status: "Final", "1st Qtr",
// "Halftime", or an ISO start time for games not yet started.
func mapStatus(status string, period int) games.Status {
	lower := strings.ToLower(strings.TrimSpace(status))
	switch {
	case strings.HasPrefix(lower, "final"), lower == "ended":
		return games.StatusFinal
	case strings.Contains(lower, "qtr"), strings.HasPrefix(lower, "ot"),
		lower == "halftime", lower == "end of period", lower == "in progress":
		return games.StatusInProgress
	case lower == "postponed":
		return games.StatusPostponed
	case lower == "canceled", lower == "cancelled":
		return games.StatusCanceled
	}
	if period > 0 {
		return games.StatusInProgress
	}
	return games.NormalizeStatus(lower)
}

func mapDate(raw, fallback string) string {
	if len(raw) >= len(timeutil.DateLayout) {
		candidate := raw[:len(timeutil.DateLayout)]
		if _, err := timeutil.ParseDate(candidate); err == nil {
			return candidate
		}
	}
	return fallback
}

func startTime(g gameResponse) time.Time {
	for _, raw := range []string{g.Datetime, g.Status} {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func teamLabel(t teamResponse) string {
	if t.Abbreviation != "" {
		return t.Abbreviation
	}
	if t.FullName != "" {
		return t.FullName
	}
	return t.Name
}
