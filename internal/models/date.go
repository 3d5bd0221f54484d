package models

import (
	"fmt"
	"time"
)

// DayLayout is the calendar-day format used in stored blobs.
const DayLayout = time.DateOnly

// ParseDay reads a stored date. Both "2006-01-02" and full RFC3339
// timestamps are accepted; the result is midnight of that calendar day in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(DayLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return StartOfDay(t.In(loc)), nil
}

// StartOfDay drops the time component, keeping the location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func FormatDay(t time.Time) string {
	return t.Format(DayLayout)
}

// DaysBetween returns to − from in whole calendar days.
func DaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
