package espn

import (
	"strconv"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// ESPN drops seconds from event timestamps.
var timeLayouts = []string{"2006-01-02T15:04Z07:00", time.RFC3339}

func mapEvent(league games.League, regulation int, e eventResponse, date string, capturedAt time.Time) games.Snapshot {
	status := mapStatus(e.Status.Type)
	snap := games.Snapshot{
		League:     league,
		GameID:     e.ID,
		Date:       date,
		Status:     status,
		Period:     e.Status.Period,
		IsFinal:    status == games.StatusFinal,
		IsOvertime: regulation > 0 && e.Status.Period > regulation,
		CapturedAt: capturedAt,
	}
	if status == games.StatusInProgress {
		snap.Clock = e.Status.DisplayClock
	}

	stamp := e.Date
	if len(e.Competitions) > 0 {
		comp := e.Competitions[0]
		if comp.Date != "" {
			stamp = comp.Date
		}
		for _, c := range comp.Competitors {
			score, _ := strconv.Atoi(strings.TrimSpace(c.Score))
			label := teamLabel(c.Team)
			if c.HomeAway == "home" {
				snap.HomeTeam, snap.HomeScore = label, score
			} else {
				snap.VisitorTeam, snap.VisitorScore = label, score
			}
		}
	}
	snap.StartTime = parseTime(stamp)
	return snap.Normalize()
}

func mapStatus(t statusTypeResult) games.Status {
	name := strings.ToUpper(t.Name)
	switch {
	case strings.Contains(name, "POSTPONED"), strings.Contains(name, "SUSPENDED"), strings.Contains(name, "DELAYED"):
		return games.StatusPostponed
	case strings.Contains(name, "CANCELED"), strings.Contains(name, "CANCELLED"):
		return games.StatusCanceled
	}
	if t.Completed {
		return games.StatusFinal
	}
	switch strings.ToLower(t.State) {
	case "pre":
		return games.StatusScheduled
	case "in":
		return games.StatusInProgress
	case "post":
		return games.StatusFinal
	}
	return games.NormalizeStatus(t.Description)
}

func parseTime(raw string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func teamLabel(t teamResponse) string {
	if t.Abbreviation != "" {
		return t.Abbreviation
	}
	return t.DisplayName
}
