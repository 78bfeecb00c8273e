package games

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"Final":       StatusFinal,
		"FINAL":       StatusFinal,
		"Final/OT":    StatusFinal,
		"completed":   StatusFinal,
		"OFF":         StatusFinal,
		"LIVE":        StatusInProgress,
		"In Progress": StatusInProgress,
		"CRIT":        StatusInProgress,
		"FUT":         StatusScheduled,
		"Preview":     StatusScheduled,
		"Postponed":   StatusPostponed,
		"Delayed":     StatusPostponed,
		"Cancelled":   StatusCanceled,
		"7:30 pm ET":  StatusScheduled,
		"":            StatusScheduled,
	}
	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Fatalf("NormalizeStatus(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusInProgress.Live() || StatusFinal.Live() {
		t.Fatalf("unexpected Live results")
	}
	if !StatusCanceled.Inactive() || StatusScheduled.Inactive() {
		t.Fatalf("unexpected Inactive results")
	}
	if Status("bogus").Valid() {
		t.Fatalf("expected bogus status to be invalid")
	}
}
