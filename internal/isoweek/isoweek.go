// Package isoweek does ISO-8601 week arithmetic. Weeks start on Monday and
// week 1 is the week holding the year's first Thursday.
package isoweek

import "time"

// Week identifies one ISO week and the local midnight that opens it.
type Week struct {
	Year  int
	Week  int
	Start time.Time
}

// Of returns the ISO year and week number of t in t's location.
func Of(t time.Time) (year, week int) {
	return t.ISOWeek()
}

// StartOf returns Monday 00:00 of the ISO week containing t, in t's location.
func StartOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// Containing returns the Week that holds t.
func Containing(t time.Time) Week {
	y, w := Of(t)
	return Week{Year: y, Week: w, Start: StartOf(t)}
}

// End returns the first instant after the week.
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, 7)
}

// Contains reports whether t falls inside the week.
func (w Week) Contains(t time.Time) bool {
	t = t.In(w.Start.Location())
	return !t.Before(w.Start) && t.Before(w.End())
}

// MaxWindow is the largest window, in weeks, the reports accept.
const MaxWindow = 104

// Window returns n consecutive weeks ending with the week containing ref,
// oldest first. It returns nil when n < 1.
func Window(ref time.Time, n int) []Week {
	if n < 1 {
		return nil
	}
	last := StartOf(ref)
	weeks := make([]Week, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := last.AddDate(0, 0, -7*i)
		y, w := start.ISOWeek()
		weeks = append(weeks, Week{Year: y, Week: w, Start: start})
	}
	return weeks
}

// WeeksInYear returns 52 or 53. December 28 always falls in the last ISO
// week of its year.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 12, 0, 0, 0, time.UTC).ISOWeek()
	return w
}
