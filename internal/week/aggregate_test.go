package week

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
)

func TestAggregateAllDatesPresent(t *testing.T) {
	w := testWindow(t)

	days := Aggregate(nil, w)

	require.Len(t, days, model.WindowDays)
	for _, d := range w.Days {
		assert.NotNil(t, days[d])
		assert.Empty(t, days[d])
	}
}

func TestAggregateDropsDatesOutsideWindow(t *testing.T) {
	w := testWindow(t)
	loc := w.Location

	days := Aggregate([]model.DayTile{
		{Date: date(time.October, 24), Label: "all day", Summary: "Weekend", AllDay: true, Start: at(loc, time.October, 24, 0, 0)},
	}, w)

	assert.Len(t, days, model.WindowDays)
	_, ok := days[date(time.October, 24)]
	assert.False(t, ok)
}

func TestAggregateDedupBySummaryAndLabel(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	tue := date(time.October, 20)

	days := Aggregate([]model.DayTile{
		{Date: tue, Label: "12:00–13:00", Summary: "Lunch", UID: "a", Start: at(loc, time.October, 20, 12, 0)},
		{Date: tue, Label: "12:00–13:00", Summary: "lunch", UID: "b", Start: at(loc, time.October, 20, 12, 0)},
		{Date: tue, Label: "13:00–14:00", Summary: "Lunch", UID: "c", Start: at(loc, time.October, 20, 13, 0)},
	}, w)

	assert.Equal(t, []string{"12:00–13:00", "13:00–14:00"}, labelsOf(days[tue]))
}

func TestAggregateDedupByUIDAndStart(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	wed := date(time.October, 21)

	days := Aggregate([]model.DayTile{
		{Date: wed, Label: "09:00–10:00", Summary: "Planning", UID: "p", Start: at(loc, time.October, 21, 9, 0)},
		{Date: wed, Label: "09:00–10:30", Summary: "Planning v2", UID: "p", Start: at(loc, time.October, 21, 9, 0)},
		{Date: wed, Label: "09:00–10:30", Summary: "Other", Start: at(loc, time.October, 21, 9, 0)},
	}, w)

	assert.Len(t, days[wed], 2)
	assert.Equal(t, "Other", days[wed][0].Summary)
	assert.Equal(t, "Planning", days[wed][1].Summary)
}

func TestAggregateSortOrder(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	thu := date(time.October, 22)

	tiles := []model.DayTile{
		{Date: thu, Label: "08:00–09:00", Summary: "early", Start: at(loc, time.October, 22, 8, 0)},
		{Date: thu, Label: "10:00–11:00", Summary: "b meeting", Start: at(loc, time.October, 22, 10, 0)},
		{Date: thu, Label: "10:00–10:30", Summary: "A meeting", Start: at(loc, time.October, 22, 10, 0)},
		{Date: thu, Label: "all day", Summary: "Offsite", AllDay: true, Start: at(loc, time.October, 20, 14, 0)},
		{Date: thu, Label: "all day", Summary: "Holiday", AllDay: true, Start: at(loc, time.October, 22, 0, 0)},
	}

	days := Aggregate(tiles, w)
	summaries := make([]string, 0)
	for _, tile := range days[thu] {
		summaries = append(summaries, tile.Summary)
	}
	assert.Equal(t, []string{"Offsite", "Holiday", "early", "A meeting", "b meeting"}, summaries)

	reversed := slices.Clone(tiles)
	slices.Reverse(reversed)
	assert.Equal(t, days, Aggregate(reversed, w))
}

func TestAggregateAllDayBeforeTimedRegardlessOfInput(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	fri := date(time.October, 23)
	timed := model.DayTile{Date: fri, Label: "00:00–01:00", Summary: "Early", Start: at(loc, time.October, 22, 23, 0)}
	allDay := model.DayTile{Date: fri, Label: "all day", Summary: "Late", AllDay: true, Start: at(loc, time.October, 23, 0, 0)}

	for _, in := range [][]model.DayTile{{timed, allDay}, {allDay, timed}} {
		days := Aggregate(in, w)
		require.Len(t, days[fri], 2)
		assert.True(t, days[fri][0].AllDay)
		assert.False(t, days[fri][1].AllDay)
	}
}
