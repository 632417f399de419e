package model

import (
	"fmt"
	"time"
)

// WindowDays is the number of calendar dates in a week view.
const WindowDays = 5

// LocalDate is a calendar date without a zone, used as the per-day key.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// In returns local midnight of d in loc.
func (d LocalDate) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the date n days after d (n may be negative).
func (d LocalDate) AddDays(n int) LocalDate {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Before reports whether d is strictly earlier than other.
func (d LocalDate) Before(other LocalDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d LocalDate) After(other LocalDate) bool {
	return other.Before(d)
}

// Weekday returns the day of the week of d.
func (d LocalDate) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// Format formats d using a time layout.
func (d LocalDate) Format(layout string) string {
	return d.In(time.UTC).Format(layout)
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler so dates can key JSON maps.
func (d LocalDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// WeekWindow is the five-date span a run renders. It is computed once per
// run and never mutated afterwards.
type WeekWindow struct {
	Location *time.Location

	// Start is local midnight of the first date; End is 23:59:59 local on
	// the last date. Both bounds are inclusive.
	Start time.Time
	End   time.Time

	Days [WindowDays]LocalDate
}

// Contains reports whether d is one of the window's dates.
func (w WeekWindow) Contains(d LocalDate) bool {
	return w.Index(d) >= 0
}

// Index returns the position of d within Days, or -1.
func (w WeekWindow) Index(d LocalDate) int {
	for i, day := range w.Days {
		if day == d {
			return i
		}
	}
	return -1
}
