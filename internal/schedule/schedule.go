// Package schedule holds the pure scheduling primitives: recurrence
// expansion of weekday patterns into concrete dates and half-open interval
// overlap checks. Nothing here touches storage or clocks.
package schedule

import (
	"fmt"
	"time"

	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

// ParseClock converts a minute-precision wall-clock string ("HH:MM") into
// minutes from midnight.
func ParseClock(raw string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%2d:%2d", &hour, &minute); err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time %q, expected HH:MM", raw))
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || len(raw) != 5 || raw[2] != ':' {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid time %q, expected HH:MM", raw))
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes from midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseWindow validates a start/end pair and returns both as minutes.
// start must be strictly before end.
func ParseWindow(startTime, endTime string) (int, int, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("start time %s must be before end time %s", startTime, endTime))
	}
	return start, end, nil
}

// Window is a dated, minute-precision time interval.
type Window struct {
	Date     time.Time
	StartMin int
	EndMin   int
}

// Overlaps applies half-open interval semantics: windows on different days
// never overlap, and a window ending at 11:00 does not conflict with one
// starting at 11:00. The check is symmetric.
func (w Window) Overlaps(other Window) bool {
	if !DateOnly(w.Date).Equal(DateOnly(other.Date)) {
		return false
	}
	return w.StartMin < other.EndMin && other.StartMin < w.EndMin
}

// Contains reports whether the other window lies fully inside this one,
// on the same day.
func (w Window) Contains(other Window) bool {
	if !DateOnly(w.Date).Equal(DateOnly(other.Date)) {
		return false
	}
	return w.StartMin <= other.StartMin && other.EndMin <= w.EndMin
}

// DateOnly truncates a timestamp to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Expand returns every date in [start, end] whose weekday is in daysOfWeek
// (0 = Sunday .. 6 = Saturday), ascending and deduplicated. It is
// deterministic: identical input always yields an identical sequence.
func Expand(start, end time.Time, daysOfWeek []int) ([]time.Time, error) {
	start = DateOnly(start)
	end = DateOnly(end)
	if start.After(end) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "start date is after end date")
	}
	if len(daysOfWeek) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "at least one day of week is required")
	}

	wanted := make(map[time.Weekday]struct{}, len(daysOfWeek))
	for _, d := range daysOfWeek {
		if d < 0 || d > 6 {
			return nil, appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("day of week %d out of range 0..6", d))
		}
		wanted[time.Weekday(d)] = struct{}{}
	}

	// Walking day by day keeps the output ascending and deduplicated.
	var dates []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if _, ok := wanted[day.Weekday()]; ok {
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}
