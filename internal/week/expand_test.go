package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
)

func startsOf(occs []model.Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Start.Format(time.RFC3339))
	}
	return out
}

func TestExpandDailyWithExclusion(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:     "standup",
		Summary: "Standup",
		Start:   zoned(loc, time.October, 1, 10, 0),
		End:     zoned(loc, time.October, 1, 10, 15),
		RRule:   "FREQ=DAILY",
		ExDates: []model.TimeValue{zoned(loc, time.October, 21, 10, 0)},
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)
	require.NoError(t, err)

	require.Len(t, occs, 4)
	for i, day := range []int{19, 20, 22, 23} {
		assert.True(t, occs[i].Start.Equal(at(loc, time.October, day, 10, 0)), "occurrence %d", i)
		assert.True(t, occs[i].End.Equal(at(loc, time.October, day, 10, 15)), "occurrence %d", i)
		assert.Equal(t, "Standup", occs[i].Summary)
		assert.False(t, occs[i].Overridden)
	}
}

func TestExpandCountMinusExclusions(t *testing.T) {
	loc := vienna(t)
	unbounded := model.WeekWindow{
		Location: loc,
		Start:    time.Date(2000, 1, 1, 0, 0, 0, 0, loc),
		End:      time.Date(2100, 1, 1, 0, 0, 0, 0, loc),
	}
	master := model.RawEvent{
		UID:   "weekly",
		Start: zoned(loc, time.October, 5, 9, 0),
		End:   zoned(loc, time.October, 5, 10, 0),
		RRule: "RRULE:FREQ=WEEKLY;COUNT=10",
		ExDates: []model.TimeValue{
			zoned(loc, time.October, 19, 9, 0),
			zoned(loc, time.November, 2, 9, 0),
			// not an instance of the rule
			zoned(loc, time.November, 3, 9, 0),
		},
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, unbounded)
	require.NoError(t, err)

	assert.Len(t, occs, 8)
	for _, o := range occs {
		// The rule crosses the end of DST on 2026-10-25 and keeps local time.
		assert.Equal(t, 9, o.Start.In(loc).Hour())
	}
}

func TestExpandCancelledMaster(t *testing.T) {
	w := testWindow(t)
	master := model.RawEvent{
		UID:    "gone",
		Status: "cancelled",
		Start:  zoned(w.Location, time.October, 20, 9, 0),
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)

	require.NoError(t, err)
	assert.Empty(t, occs)
}

func TestExpandInvalidRule(t *testing.T) {
	w := testWindow(t)
	master := model.RawEvent{
		UID:   "broken",
		Start: zoned(w.Location, time.October, 20, 9, 0),
		RRule: "FREQ=SOMETIMES",
	}

	_, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)

	assert.Error(t, err)
}

func TestExpandMissingStart(t *testing.T) {
	_, err := NewExpander(ExpandOptions{}).Expand(model.RawEvent{UID: "x"}, OverrideIndex{}, testWindow(t))

	assert.ErrorIs(t, err, ErrMissingStart)
}

func TestExpandSingleEvent(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	x := NewExpander(ExpandOptions{})

	inside := model.RawEvent{UID: "a", Start: zoned(loc, time.October, 20, 9, 0), End: zoned(loc, time.October, 20, 10, 0)}
	outside := model.RawEvent{UID: "b", Start: zoned(loc, time.October, 27, 9, 0), End: zoned(loc, time.October, 27, 10, 0)}

	occs, err := x.Expand(inside, OverrideIndex{}, w)
	require.NoError(t, err)
	assert.Len(t, occs, 1)

	occs, err = x.Expand(outside, OverrideIndex{}, w)
	require.NoError(t, err)
	assert.Empty(t, occs)
}

func TestExpandExtraDates(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:   "extra",
		Start: zoned(loc, time.October, 19, 8, 0),
		End:   zoned(loc, time.October, 19, 9, 0),
		RDates: []model.TimeValue{
			zoned(loc, time.October, 21, 8, 0),
			zoned(loc, time.October, 22, 8, 0),
			zoned(loc, time.November, 30, 8, 0),
		},
		ExDates: []model.TimeValue{zoned(loc, time.October, 22, 8, 0)},
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)
	require.NoError(t, err)

	require.Len(t, occs, 2)
	assert.True(t, occs[0].Start.Equal(at(loc, time.October, 19, 8, 0)))
	assert.True(t, occs[1].Start.Equal(at(loc, time.October, 21, 8, 0)))
	assert.True(t, occs[1].End.Equal(at(loc, time.October, 21, 9, 0)))
}

func TestExpandPadsSearchByDuration(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:   "night",
		Start: zoned(loc, time.October, 1, 22, 0),
		End:   zoned(loc, time.October, 2, 2, 0),
		RRule: "FREQ=DAILY",
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)
	require.NoError(t, err)

	require.Len(t, occs, 6)
	assert.True(t, occs[0].Start.Equal(at(loc, time.October, 18, 22, 0)))
}

func TestExpandAllDayRecurrenceAcrossDST(t *testing.T) {
	loc := vienna(t)
	w := NewWindow(at(loc, time.October, 28, 12, 0), loc, time.Monday)
	master := model.RawEvent{
		UID:   "holiday",
		Start: model.DateValue(2026, 10, 24),
		End:   model.DateValue(2026, 10, 25),
		RRule: "FREQ=DAILY;COUNT=5",
	}

	occs, err := NewExpander(ExpandOptions{}).Expand(master, OverrideIndex{}, w)
	require.NoError(t, err)

	// Instances 24..28, the window starts on the 26th.
	require.Len(t, occs, 3)
	for _, o := range occs {
		assert.True(t, o.AllDay)
		assert.True(t, isMidnight(o.Start.In(loc)))
		assert.True(t, isMidnight(o.End.In(loc)))
	}
}

func TestExpandOverride(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:     "review",
		Summary: "Review",
		Start:   zoned(loc, time.October, 19, 9, 0),
		End:     zoned(loc, time.October, 19, 10, 0),
		RRule:   "FREQ=DAILY;COUNT=5",
	}
	moved := model.Override{
		RawEvent: model.RawEvent{
			UID:     "review",
			Summary: "Review (moved)",
			Start:   zoned(loc, time.October, 20, 14, 0),
			End:     zoned(loc, time.October, 20, 15, 0),
		},
		RecurrenceID: zoned(loc, time.October, 20, 9, 0),
	}
	ix := NewOverrideIndex([]model.Override{moved}, loc)

	occs, err := NewExpander(ExpandOptions{}).Expand(master, ix, w)
	require.NoError(t, err)

	require.Len(t, occs, 5)
	tue := occs[1]
	assert.True(t, tue.Overridden)
	assert.Equal(t, "Review (moved)", tue.Summary)
	assert.True(t, tue.Start.Equal(at(loc, time.October, 20, 14, 0)))
	assert.Equal(t, at(loc, time.October, 20, 9, 0).Format(time.RFC3339Nano), tue.InstanceKey)
	assert.Equal(t, "Review", occs[0].Summary)
}

func TestExpandOverrideMovedOutsideWindowIsKept(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:   "sync",
		Start: zoned(loc, time.October, 23, 9, 0),
		End:   zoned(loc, time.October, 23, 10, 0),
		RRule: "FREQ=WEEKLY",
	}
	ix := NewOverrideIndex([]model.Override{{
		RawEvent: model.RawEvent{
			UID:   "sync",
			Start: zoned(loc, time.October, 26, 9, 0),
			End:   zoned(loc, time.October, 26, 10, 0),
		},
		RecurrenceID: zoned(loc, time.October, 23, 9, 0),
	}}, loc)

	occs, err := NewExpander(ExpandOptions{}).Expand(master, ix, w)
	require.NoError(t, err)

	require.Len(t, occs, 1)
	assert.True(t, occs[0].Start.Equal(at(loc, time.October, 26, 9, 0)))
}

func TestExpandOverrideSuppression(t *testing.T) {
	w := testWindow(t)
	loc := w.Location
	master := model.RawEvent{
		UID:   "daily",
		Start: zoned(loc, time.October, 19, 9, 0),
		End:   zoned(loc, time.October, 19, 9, 30),
		RRule: "FREQ=DAILY;COUNT=5",
	}
	overrides := []model.Override{
		{
			RawEvent:     model.RawEvent{UID: "daily", Status: "CANCELLED", Start: zoned(loc, time.October, 20, 9, 0)},
			RecurrenceID: zoned(loc, time.October, 20, 9, 0),
		},
		{
			RawEvent:     model.RawEvent{UID: "daily", Organizer: "mailto:deleted@example.com", Start: zoned(loc, time.October, 21, 9, 0)},
			RecurrenceID: zoned(loc, time.October, 21, 9, 0),
		},
	}
	x := NewExpander(ExpandOptions{IsDeleted: DeletedMatcher([]string{"DELETED@"}, nil)})

	occs, err := x.Expand(master, NewOverrideIndex(overrides, loc), w)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2026-10-19T09:00:00+02:00",
		"2026-10-22T09:00:00+02:00",
		"2026-10-23T09:00:00+02:00",
	}, startsOf(occs))
}

func TestOverrideIndex(t *testing.T) {
	loc := vienna(t)
	rid := zoned(loc, time.October, 20, 9, 0)
	ix := NewOverrideIndex([]model.Override{
		{RawEvent: model.RawEvent{UID: "", Summary: "no uid"}, RecurrenceID: rid},
		{RawEvent: model.RawEvent{UID: "a", Summary: "no rid"}},
		{RawEvent: model.RawEvent{UID: "a", Summary: "v1", Seq: 1}, RecurrenceID: rid},
		{RawEvent: model.RawEvent{UID: "a", Summary: "v2", Seq: 2}, RecurrenceID: model.ZonedValue(rid.Wall.UTC())},
		{RawEvent: model.RawEvent{UID: "a", Summary: "v0", Seq: 0}, RecurrenceID: rid},
	}, loc)

	assert.Equal(t, 2, ix.Dropped())
	assert.Equal(t, 1, ix.Len())
	ov, ok := ix.Lookup("a", at(loc, time.October, 20, 9, 0))
	require.True(t, ok)
	assert.Equal(t, "v2", ov.Summary)

	_, ok = ix.Lookup("", at(loc, time.October, 20, 9, 0))
	assert.False(t, ok)
}

func TestDeletedMatcher(t *testing.T) {
	assert.Nil(t, DeletedMatcher(nil, []string{" "}))

	match := DeletedMatcher([]string{"trash"}, []string{"[deleted]"})
	assert.True(t, match(model.Override{RawEvent: model.RawEvent{OrganizerName: "Trash Bin"}}))
	assert.True(t, match(model.Override{RawEvent: model.RawEvent{Summary: "[DELETED] Review"}}))
	assert.False(t, match(model.Override{RawEvent: model.RawEvent{Summary: "Review", Organizer: "mailto:a@b.c"}}))
}

func TestExpandInEventZone(t *testing.T) {
	loc := vienna(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Vienna has left DST on 2026-10-25, New York only does on 2026-11-01.
	w := NewWindow(at(loc, time.October, 28, 12, 0), loc, time.Monday)
	master := model.RawEvent{
		UID:     "call",
		Summary: "Call",
		Start:   zoned(ny, time.October, 1, 9, 0),
		End:     zoned(ny, time.October, 1, 9, 30),
		RRule:   "FREQ=DAILY",
		ExDates: []model.TimeValue{zoned(ny, time.October, 28, 9, 0)},
	}
	ix := NewOverrideIndex([]model.Override{{
		RawEvent: model.RawEvent{
			UID:     "call",
			Summary: "Call (late)",
			Start:   zoned(ny, time.October, 29, 11, 0),
			End:     zoned(ny, time.October, 29, 11, 30),
		},
		RecurrenceID: zoned(ny, time.October, 29, 9, 0),
	}}, loc)

	occs, err := NewExpander(ExpandOptions{}).Expand(master, ix, w)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"2026-10-26T14:00:00+01:00",
		"2026-10-27T14:00:00+01:00",
		"2026-10-29T16:00:00+01:00",
		"2026-10-30T14:00:00+01:00",
	}, startsOf(occs))
	assert.True(t, occs[0].End.Equal(at(loc, time.October, 26, 14, 30)))
	assert.True(t, occs[2].Overridden)
	assert.Equal(t, "Call (late)", occs[2].Summary)
	assert.Equal(t, loc, occs[0].Start.Location())
}
