package games

import "strings"

// Status is the normalized lifecycle state of a game.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusFinal      Status = "final"
	StatusPostponed  Status = "postponed"
	StatusCanceled   Status = "canceled"
)

var statusAliases = map[string]Status{
	"final":       StatusFinal,
	"completed":   StatusFinal,
	"finished":    StatusFinal,
	"off":         StatusFinal,
	"post":        StatusFinal,
	"live":        StatusInProgress,
	"in progress": StatusInProgress,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"active":      StatusInProgress,
	"crit":        StatusInProgress,
	"in":          StatusInProgress,
	"halftime":    StatusInProgress,
	"scheduled":   StatusScheduled,
	"upcoming":    StatusScheduled,
	"pre":         StatusScheduled,
	"fut":         StatusScheduled,
	"preview":     StatusScheduled,
	"postponed":   StatusPostponed,
	"delayed":     StatusPostponed,
	"suspended":   StatusPostponed,
	"cancelled":   StatusCanceled,
	"canceled":    StatusCanceled,
}

// NormalizeStatus maps a provider status string onto Status.
// Unknown values fall back to scheduled. "Final/OT" style markers resolve to final.
func NormalizeStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusAliases[key]; ok {
		return s
	}
	if strings.HasPrefix(key, "final") {
		return StatusFinal
	}
	return StatusScheduled
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusFinal, StatusPostponed, StatusCanceled:
		return true
	}
	return false
}

// Live reports whether play is underway.
func (s Status) Live() bool {
	return s == StatusInProgress
}

// Inactive covers games that will not be played on their scheduled date.
func (s Status) Inactive() bool {
	return s == StatusPostponed || s == StatusCanceled
}
