package model

import (
	"strings"
	"time"
)

// ValueKind discriminates the three shapes a DTSTART/DTEND/EXDATE/RDATE
// value can take in a feed.
type ValueKind int

const (
	// ValueNone marks an absent value.
	ValueNone ValueKind = iota
	// ValueDate is a pure calendar date (VALUE=DATE).
	ValueDate
	// ValueFloating is a clock time without zone information.
	ValueFloating
	// ValueZoned is an absolute instant (UTC "Z" form or TZID-qualified).
	ValueZoned
)

func (k ValueKind) String() string {
	switch k {
	case ValueDate:
		return "date"
	case ValueFloating:
		return "floating"
	case ValueZoned:
		return "zoned"
	default:
		return "none"
	}
}

// TimeValue is a tagged union over ValueKind.
//
// For ValueDate only the calendar fields of Wall are meaningful; for
// ValueFloating the calendar and clock fields are meaningful and the
// location is ignored; for ValueZoned Wall is the instant itself.
type TimeValue struct {
	Kind ValueKind
	Wall time.Time
}

// DateValue builds a pure-date value.
func DateValue(year int, month time.Month, day int) TimeValue {
	return TimeValue{Kind: ValueDate, Wall: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FloatingValue builds a zone-less clock value from the wall-clock fields of t.
func FloatingValue(t time.Time) TimeValue {
	return TimeValue{
		Kind: ValueFloating,
		Wall: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC),
	}
}

// ZonedValue builds an absolute-instant value.
func ZonedValue(t time.Time) TimeValue {
	return TimeValue{Kind: ValueZoned, Wall: t}
}

// IsZero reports whether the value is absent.
func (v TimeValue) IsZero() bool {
	return v.Kind == ValueNone
}

// Span is an iCalendar DURATION: a nominal day part that follows the local
// wall clock across DST changes, and an exact part.
type Span struct {
	Days  int
	Exact time.Duration
}

// AddTo returns t shifted by the span.
func (s Span) AddTo(t time.Time) time.Time {
	return t.AddDate(0, 0, s.Days).Add(s.Exact)
}

// IsZero reports whether the span has no length.
func (s Span) IsZero() bool {
	return s.Days == 0 && s.Exact == 0
}

func isCancelled(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), "CANCELLED")
}
