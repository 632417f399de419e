package week

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

// Options configures Build.
type Options struct {
	Expand ExpandOptions
	Labels Labels

	// Workers bounds parallel per-master expansion. Zero means GOMAXPROCS.
	Workers int
}

// Stats summarizes one Build for logging and the JSON API.
type Stats struct {
	Masters          int `json:"masters"`
	Cancelled        int `json:"cancelled"`
	Skipped          int `json:"skipped"`
	Overrides        int `json:"overrides"`
	DroppedOverrides int `json:"dropped_overrides"`
	Occurrences      int `json:"occurrences"`
	Tiles            int `json:"tiles"`
}

// View is the computed week: the window and the ordered tiles of each date.
type View struct {
	Window model.WeekWindow
	Days   map[model.LocalDate][]model.DayTile
	Stats  Stats
}

// Column is one window date with its ordered tiles.
type Column struct {
	Date  model.LocalDate
	Tiles []model.DayTile
}

// Columns returns the window dates in order with their tiles.
func (v View) Columns() []Column {
	cols := make([]Column, 0, model.WindowDays)
	for _, d := range v.Window.Days {
		cols = append(cols, Column{Date: d, Tiles: v.Days[d]})
	}
	return cols
}

// Build runs the whole transform over feed for window. Masters are expanded
// in parallel; a master that cannot be expanded is logged and skipped.
func Build(feed model.Feed, window model.WeekWindow, opts Options) View {
	index := NewOverrideIndex(feed.Overrides, window.Location)
	expander := NewExpander(opts.Expand)
	segmenter := NewSegmenter(opts.Labels)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	stats := Stats{
		Masters:          len(feed.Events),
		Overrides:        index.Len(),
		DroppedOverrides: index.Dropped(),
	}

	results := make([][]model.Occurrence, len(feed.Events))
	failed := make([]bool, len(feed.Events))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, ev := range feed.Events {
		if ev.Cancelled() {
			stats.Cancelled++
			continue
		}
		g.Go(func() error {
			occs, err := expander.Expand(ev, index, window)
			if err != nil {
				appLog.Error("expand: event skipped", err, "source", ev.SourceID, "uid", ev.UID, "summary", ev.Summary)
				failed[i] = true
				return nil
			}
			results[i] = occs
			return nil
		})
	}
	_ = g.Wait()

	tiles := make([]model.DayTile, 0)
	for i, occs := range results {
		if failed[i] {
			stats.Skipped++
			continue
		}
		stats.Occurrences += len(occs)
		for _, occ := range occs {
			tiles = append(tiles, segmenter.Segment(occ, window)...)
		}
	}

	days := Aggregate(tiles, window)
	for _, list := range days {
		stats.Tiles += len(list)
	}

	return View{Window: window, Days: days, Stats: stats}
}
