package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout defines the canonical date format (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// FormatDate formats a time as YYYY-MM-DD in its current location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	return FormatDate(In(now, loc))
}

// Yesterday returns the calendar date before now in loc.
func Yesterday(now time.Time, loc *time.Location) string {
	return FormatDate(In(now, loc).AddDate(0, 0, -1))
}

// In converts now into loc, leaving it untouched when loc is nil.
func In(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return now
	}
	return now.In(loc)
}

// ResolveLocation returns a location for a tz string, or fallback if empty/invalid.
func ResolveLocation(tz string, fallback *time.Location) *time.Location {
	if tz == "" {
		return fallback
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fallback
	}
	return loc
}

// ClockSeconds is a time of day expressed as seconds after midnight.
type ClockSeconds int

// ParseClock parses an HH:MM time of day.
func ParseClock(value string) (ClockSeconds, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, fmt.Errorf("clock %q: expected HH:MM", value)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock %q: invalid hour", value)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("clock %q: invalid minute", value)
	}
	return ClockSeconds(h*3600 + m*60), nil
}

// ClockOf returns the time of day of t in its own location.
func ClockOf(t time.Time) ClockSeconds {
	h, m, s := t.Clock()
	return ClockSeconds(h*3600 + m*60 + s)
}

// Hour and Minute split the value back out.
func (c ClockSeconds) Hour() int   { return int(c) / 3600 }
func (c ClockSeconds) Minute() int { return (int(c) % 3600) / 60 }

func (c ClockSeconds) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}
