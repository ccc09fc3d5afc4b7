package checkin

import "time"

// QuarterOf returns the calendar quarter (1-4) and year containing t.
func QuarterOf(t time.Time) (quarter, year int) {
	return (int(t.Month())-1)/3 + 1, t.Year()
}

// QuarterRange returns the inclusive [first instant, last instant] of
// quarter q (1-4) in year. Quarter q covers the three months starting at
// month 3(q-1) (zero-indexed).
func QuarterRange(q, year int, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start = time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 3, 0).Add(-time.Nanosecond)
	return start, end
}

// InQuarter reports whether t falls inside quarter q of year, boundaries
// inclusive.
func InQuarter(t time.Time, q, year int) bool {
	start, end := QuarterRange(q, year, t.Location())
	return !t.Before(start) && !t.After(end)
}
