package attendance

import (
	"errors"
	"time"
)

const dayLayout = "2006-01-02"

// Day returns the calendar day of t as seen in loc, as UTC midnight.
func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the month, leap years included.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDay accepts YYYY-MM-DD or an RFC 3339 timestamp. Timestamps are
// reduced to their calendar day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(dayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or RFC 3339 date")
	}
	return Day(t, loc), nil
}

// FormatDay renders a calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// daysBetween counts calendar days in [first, last], both UTC midnights.
func daysBetween(first, last time.Time) int {
	return int(last.Sub(first).Hours()/24) + 1
}
