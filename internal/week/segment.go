package week

import (
	"time"

	"weekcal/internal/model"
)

const (
	clockLayout = "15:04"
	rangeSep    = "–"
)

// Labels holds the human-readable time descriptors put on tiles.
type Labels struct {
	AllDay   string // e.g. "all day"
	Start    string // prefix for the first day of a multi-day event, e.g. "start:"
	End      string // prefix for the last day of a multi-day event, e.g. "end:"
	Untitled string // summary used when an event has none
}

func DefaultLabels() Labels {
	return Labels{
		AllDay:   "all day",
		Start:    "start:",
		End:      "end:",
		Untitled: "(untitled)",
	}
}

// Segmenter splits occurrences into per-day tiles.
type Segmenter struct {
	labels Labels
}

func NewSegmenter(labels Labels) *Segmenter {
	def := DefaultLabels()
	if labels.AllDay == "" {
		labels.AllDay = def.AllDay
	}
	if labels.Start == "" {
		labels.Start = def.Start
	}
	if labels.End == "" {
		labels.End = def.End
	}
	if labels.Untitled == "" {
		labels.Untitled = def.Untitled
	}
	return &Segmenter{labels: labels}
}

// Segment returns one tile per window date the occurrence occupies.
//
// End is exclusive: an occurrence ending exactly at local midnight does not
// occupy the day starting at that midnight, unless it is a zero-length
// timed occurrence on that very day.
func (s *Segmenter) Segment(occ model.Occurrence, window model.WeekWindow) []model.DayTile {
	loc := window.Location
	start := occ.Start.In(loc)
	end := occ.End.In(loc)

	startDate := model.DateOf(start)
	endDate := model.DateOf(end)
	endsAtMidnight := isMidnight(end)

	last := endDate
	if endsAtMidnight && (occ.AllDay || endDate.After(startDate)) {
		last = last.AddDays(-1)
	}

	first := startDate
	if first.Before(window.Days[0]) {
		first = window.Days[0]
	}
	stop := last
	if stop.After(window.Days[model.WindowDays-1]) {
		stop = window.Days[model.WindowDays-1]
	}

	summary := occ.Summary
	if summary == "" {
		summary = s.labels.Untitled
	}

	tiles := make([]model.DayTile, 0)
	for d := first; !d.After(stop); d = d.AddDays(1) {
		if !window.Contains(d) {
			continue
		}
		label := s.label(occ.AllDay, d, start, end, startDate, endDate, last)
		tiles = append(tiles, model.DayTile{
			Date:     d,
			Label:    label,
			Summary:  summary,
			AllDay:   occ.AllDay || label == s.labels.AllDay,
			Start:    occ.Start,
			End:      occ.End,
			SourceID: occ.SourceID,
			UID:      occ.UID,
		})
	}
	return tiles
}

func (s *Segmenter) label(allDay bool, d model.LocalDate, start, end time.Time, startDate, endDate, last model.LocalDate) string {
	switch {
	case allDay:
		return s.labels.AllDay
	case startDate == endDate:
		return start.Format(clockLayout) + rangeSep + end.Format(clockLayout)
	case d == startDate:
		if isMidnight(end) {
			if isMidnight(start) {
				return s.labels.AllDay
			}
			return start.Format(clockLayout) + rangeSep + "00:00"
		}
		return s.labels.Start + " " + start.Format(clockLayout)
	case d == last && !isMidnight(end):
		return s.labels.End + " " + end.Format(clockLayout)
	default:
		return s.labels.AllDay
	}
}
