// Package week turns a snapshot of calendar records into a five-day view:
// time normalization, bounded recurrence expansion, override resolution,
// per-day segmentation, deduplication and ordering.
//
// Everything in this package is a pure function of (records, display zone,
// window); nothing reads the clock or the environment.
package week

import (
	"time"

	"weekcal/internal/model"
)

// Normalize converts a feed value into an absolute instant expressed in loc.
//
//   - pure dates become local midnight in loc
//   - floating clock times are read as wall-clock times in loc
//   - zoned instants are converted to loc
//
// An absent value yields the zero time.
func Normalize(v model.TimeValue, loc *time.Location) time.Time {
	switch v.Kind {
	case model.ValueDate:
		y, m, d := v.Wall.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case model.ValueFloating:
		w := v.Wall
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
	case model.ValueZoned:
		return v.Wall.In(loc)
	default:
		return time.Time{}
	}
}

// wallClock re-reads t's wall-clock fields as UTC so that differences
// ignore DST offset changes.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// wallDuration is end-start measured on the local wall clock.
func wallDuration(start, end time.Time) time.Duration {
	return wallClock(end).Sub(wallClock(start))
}

// addWall shifts t by d on the wall clock of t's location.
func addWall(t time.Time, d time.Duration) time.Time {
	w := wallClock(t).Add(d)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), t.Location())
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// resolveSpan returns the normalized start and exclusive end of ev.
//
// A missing end falls back to DURATION, then to one day for all-day events
// and to a zero-length span for timed ones.
func resolveSpan(ev model.RawEvent, loc *time.Location) (time.Time, time.Time) {
	start := Normalize(ev.Start, loc)

	var end time.Time
	switch {
	case !ev.End.IsZero():
		end = Normalize(ev.End, loc)
	case ev.Duration != nil:
		end = ev.Duration.AddTo(start)
	default:
		end = start
	}

	if end.Before(start) {
		end = start
	}
	if ev.AllDay() && !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end
}
