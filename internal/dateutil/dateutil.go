// Package dateutil holds the local-date-string helpers used across the
// store and services. Dates travel as zero-padded YYYY-MM-DD strings, so
// lexicographic comparison matches chronological order.
package dateutil

import (
	"time"
)

const Layout = "2006-01-02"

// Format renders t as a local YYYY-MM-DD string.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse converts a YYYY-MM-DD string into a local midnight time.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(Layout, s, time.Local)
}

// Today returns today's local date string.
func Today() string {
	return Format(time.Now())
}

// InRange reports whether date falls inside [start, end] inclusive.
// All three are YYYY-MM-DD strings.
func InRange(date, start, end string) bool {
	return date >= start && date <= end
}

// DaysBetween returns the whole-day distance from a to b. Negative when
// b is before a. Both dates are rebuilt as UTC midnights first, so a
// DST-shortened or -lengthened day still counts as one day.
func DaysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// AbsDays returns the absolute whole-day distance between two dates.
func AbsDays(a, b time.Time) int {
	d := DaysBetween(a, b)
	if d < 0 {
		return -d
	}
	return d
}

// WeekRange returns the Sunday-to-Saturday range containing t.
func WeekRange(t time.Time) (start, end string) {
	s := t.AddDate(0, 0, -int(t.Weekday()))
	e := s.AddDate(0, 0, 6)
	return Format(s), Format(e)
}

// MonthRange returns the first and last day of the month containing t.
func MonthRange(t time.Time) (start, end string) {
	s := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	e := s.AddDate(0, 1, -1)
	return Format(s), Format(e)
}
