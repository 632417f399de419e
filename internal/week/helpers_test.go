package week

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
)

func vienna(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Vienna")
	require.NoError(t, err)
	return loc
}

// testWindow is Mon 2026-10-19 .. Fri 2026-10-23 in Vienna.
func testWindow(t *testing.T) model.WeekWindow {
	t.Helper()
	loc := vienna(t)
	return NewWindow(time.Date(2026, 10, 21, 12, 0, 0, 0, loc), loc, time.Monday)
}

func at(loc *time.Location, month time.Month, day, hour, minute int) time.Time {
	return time.Date(2026, month, day, hour, minute, 0, 0, loc)
}

func zoned(loc *time.Location, month time.Month, day, hour, minute int) model.TimeValue {
	return model.ZonedValue(at(loc, month, day, hour, minute))
}

func date(month time.Month, day int) model.LocalDate {
	return model.LocalDate{Year: 2026, Month: month, Day: day}
}

func labelsOf(tiles []model.DayTile) []string {
	out := make([]string, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t.Label)
	}
	return out
}

func datesOf(tiles []model.DayTile) []model.LocalDate {
	out := make([]model.LocalDate, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, t.Date)
	}
	return out
}
