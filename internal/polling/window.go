package polling

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/preston-bernstein/sports-data-service/internal/logging"
	"github.com/preston-bernstein/sports-data-service/internal/timeutil"
)

// Span is one HH:MM-HH:MM range; Start > End wraps past midnight.
type Span struct {
	Start timeutil.ClockSeconds
	End   timeutil.ClockSeconds
}

// Contains reports whether the time of day c falls within the span, inclusive.
func (s Span) Contains(c timeutil.ClockSeconds) bool {
	if s.Start <= s.End {
		return s.Start <= c && c <= s.End
	}
	return c >= s.Start || c <= s.End
}

func (s Span) String() string {
	return s.Start.String() + "-" + s.End.String()
}

// ParseSpan parses "HH:MM-HH:MM".
func ParseSpan(raw string) (Span, error) {
	startRaw, endRaw, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return Span{}, fmt.Errorf("range %q: expected HH:MM-HH:MM", raw)
	}
	start, err := timeutil.ParseClock(startRaw)
	if err != nil {
		return Span{}, fmt.Errorf("range %q: %w", raw, err)
	}
	end, err := timeutil.ParseClock(endRaw)
	if err != nil {
		return Span{}, fmt.Errorf("range %q: %w", raw, err)
	}
	return Span{Start: start, End: end}, nil
}

// Window is a read-only set of active time-of-day spans evaluated in one location.
type Window struct {
	spans []Span
	loc   *time.Location
}

// ParseWindow builds a Window from range strings. Malformed ranges are logged
// and skipped, so a window of only bad ranges matches nothing.
func ParseWindow(ranges []string, loc *time.Location, logger *slog.Logger) Window {
	w := Window{loc: loc}
	for _, raw := range ranges {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		span, err := ParseSpan(raw)
		if err != nil {
			logging.Warn(logger, "skipping malformed polling range", "range", raw, logging.FieldError, err)
			continue
		}
		w.spans = append(w.spans, span)
	}
	return w
}

// Contains reports whether t falls within any span.
func (w Window) Contains(t time.Time) bool {
	c := timeutil.ClockOf(timeutil.In(t, w.loc))
	for _, s := range w.spans {
		if s.Contains(c) {
			return true
		}
	}
	return false
}

// Empty reports whether no valid span was configured.
func (w Window) Empty() bool {
	return len(w.spans) == 0
}

// Spans returns a copy of the parsed spans.
func (w Window) Spans() []Span {
	out := make([]Span, len(w.spans))
	copy(out, w.spans)
	return out
}

func (w Window) String() string {
	parts := make([]string, len(w.spans))
	for i, s := range w.spans {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
