package domain

import (
	"fmt"
	"time"
)

const lunchDateLayout = "2006-01-02"

// LunchDate is a calendar day (UTC) for which attendance is collected.
// The zero value is not a valid date.
type LunchDate struct {
	Year  int
	Month time.Month
	Day   int
}

// LunchDateOf truncates a point in time to its UTC calendar day.
func LunchDateOf(t time.Time) LunchDate {
	t = t.UTC()
	return LunchDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseLunchDate parses a date in YYYY-MM-DD form.
func ParseLunchDate(s string) (LunchDate, error) {
	t, err := time.Parse(lunchDateLayout, s)
	if err != nil {
		return LunchDate{}, fmt.Errorf("parse lunch date %q: %w", s, err)
	}
	return LunchDateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d LunchDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the weekday the date falls on.
func (d LunchDate) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// AddDays returns the date shifted by n calendar days.
func (d LunchDate) AddDays(n int) LunchDate {
	return LunchDateOf(d.Time().AddDate(0, 0, n))
}

// IsZero reports whether the date is unset.
func (d LunchDate) IsZero() bool {
	return d == LunchDate{}
}

func (d LunchDate) String() string {
	return d.Time().Format(lunchDateLayout)
}
