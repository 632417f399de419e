package week

import (
	"cmp"
	"slices"
	"strings"

	"weekcal/internal/model"
)

// Aggregate groups tiles by window date, sorts each day and removes
// duplicates. Every window date is present in the result, possibly with an
// empty list. The result does not depend on the order of tiles.
//
// Order: all-day tiles first, then by start instant, then by lower-cased
// summary; remaining fields only break exact ties.
//
// Duplicates: a tile is dropped when an earlier tile (in that order) on the
// same date has the same lower-cased summary and label, or the same UID and
// start instant.
func Aggregate(tiles []model.DayTile, window model.WeekWindow) map[model.LocalDate][]model.DayTile {
	byDate := make(map[model.LocalDate][]model.DayTile, model.WindowDays)
	for _, d := range window.Days {
		byDate[d] = []model.DayTile{}
	}

	for _, t := range tiles {
		if _, ok := byDate[t.Date]; !ok {
			continue
		}
		byDate[t.Date] = append(byDate[t.Date], t)
	}

	for d, list := range byDate {
		slices.SortStableFunc(list, compareTiles)
		byDate[d] = dedupe(list)
	}
	return byDate
}

func compareTiles(a, b model.DayTile) int {
	if a.AllDay != b.AllDay {
		if a.AllDay {
			return -1
		}
		return 1
	}
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := cmp.Compare(strings.ToLower(a.Summary), strings.ToLower(b.Summary)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Label, b.Label); c != 0 {
		return c
	}
	if c := a.End.Compare(b.End); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Summary, b.Summary); c != 0 {
		return c
	}
	if c := cmp.Compare(a.UID, b.UID); c != 0 {
		return c
	}
	return cmp.Compare(a.SourceID, b.SourceID)
}

type uidKey struct {
	uid string
	at  instantKey
}

func dedupe(sorted []model.DayTile) []model.DayTile {
	out := make([]model.DayTile, 0, len(sorted))
	byText := make(map[string]bool, len(sorted))
	byUID := make(map[uidKey]bool, len(sorted))

	for _, t := range sorted {
		tk := strings.ToLower(t.Summary) + "\x00" + t.Label
		uk := uidKey{uid: t.UID, at: keyOf(t.Start)}
		if byText[tk] || (t.UID != "" && byUID[uk]) {
			continue
		}
		byText[tk] = true
		if t.UID != "" {
			byUID[uk] = true
		}
		out = append(out, t)
	}
	return out
}
