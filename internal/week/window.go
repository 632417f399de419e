package week

import (
	"time"

	"weekcal/internal/model"
)

// NewWindow returns the five-date window of the week containing now, in loc.
// The window starts at local midnight of the most recent weekStart day and
// ends at 23:59:59 local on the fifth date.
func NewWindow(now time.Time, loc *time.Location, weekStart time.Weekday) model.WeekWindow {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) - int(weekStart) + 7) % 7
	first := model.DateOf(local).AddDays(-offset)

	w := model.WeekWindow{Location: loc}
	for i := range w.Days {
		w.Days[i] = first.AddDays(i)
	}

	last := w.Days[model.WindowDays-1]
	w.Start = first.In(loc)
	w.End = time.Date(last.Year, last.Month, last.Day, 23, 59, 59, 0, loc)
	return w
}

// intersects reports whether [start, end) overlaps the inclusive window
// bounds. Zero-length spans intersect when their instant lies inside.
func intersects(start, end time.Time, w model.WeekWindow) bool {
	if !end.After(start) {
		return !start.Before(w.Start) && !start.After(w.End)
	}
	return !start.After(w.End) && end.After(w.Start)
}
