package schedule

import (
	"context"

	"github.com/preston-bernstein/sports-data-service/internal/domain/games"
)

// Stats summarizes the stored games of one league.
type Stats struct {
	League     games.League `json:"league"`
	Total      int          `json:"total"`
	Scheduled  int          `json:"scheduled"`
	InProgress int          `json:"inProgress"`
	Final      int          `json:"final"`
	Postponed  int          `json:"postponed"`
	Canceled   int          `json:"canceled"`
	FirstDate  string       `json:"firstDate,omitempty"`
	LastDate   string       `json:"lastDate,omitempty"`
}

// Stats counts stored games for league by status.
func (u *Updater) Stats(ctx context.Context, league games.League) (Stats, error) {
	all, err := u.store.QueryAll(ctx, league)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(league, all), nil
}

// Summarize computes Stats over list.
func Summarize(league games.League, list []games.Snapshot) Stats {
	st := Stats{League: league, Total: len(list)}
	for _, g := range list {
		switch g.Status {
		case games.StatusScheduled:
			st.Scheduled++
		case games.StatusInProgress:
			st.InProgress++
		case games.StatusFinal:
			st.Final++
		case games.StatusPostponed:
			st.Postponed++
		case games.StatusCanceled:
			st.Canceled++
		}
		if g.Date == "" {
			continue
		}
		if st.FirstDate == "" || g.Date < st.FirstDate {
			st.FirstDate = g.Date
		}
		if g.Date > st.LastDate {
			st.LastDate = g.Date
		}
	}
	return st
}
