package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/model"
	"weekcal/internal/week"
)

func testView(t *testing.T) (week.View, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Vienna")
	require.NoError(t, err)

	w := week.NewWindow(time.Date(2026, 10, 21, 12, 0, 0, 0, loc), loc, time.Monday)
	feed := model.Feed{Events: []model.RawEvent{
		{
			UID:     "holiday",
			Summary: "Urlaub Anna",
			Start:   model.DateValue(2026, time.October, 19),
			End:     model.DateValue(2026, time.October, 20),
		},
		{
			UID:     "meeting",
			Summary: "Jour fixe <intern>",
			Start:   model.ZonedValue(time.Date(2026, 10, 21, 9, 0, 0, 0, loc)),
			End:     model.ZonedValue(time.Date(2026, 10, 21, 10, 30, 0, 0, loc)),
		},
	}}
	return week.Build(feed, w, week.Options{Labels: week.Labels{AllDay: "Ganztägig"}}), loc
}

func germanPage(now time.Time) Page {
	return Page{
		Title:        "Wochenplan",
		Lang:         "de",
		WeekLabel:    "KW",
		DayNames:     []string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"},
		DateFormat:   "02.01.",
		FooterFormat: "02.01.2006 um 15:04:05 Uhr",
		UpdatedText:  "Kalender zuletzt aktualisiert am",
		NoEvents:     "–",
		Highlight:    []string{"urlaub"},
		GeneratedAt:  now,
	}
}

func TestHTMLRendersWeek(t *testing.T) {
	view, loc := testView(t)
	now := time.Date(2026, 10, 21, 12, 0, 0, 0, loc)

	out, err := Bytes(view, germanPage(now))
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<html lang="de">`)
	assert.Contains(t, html, "Wochenplan (KW 43)")
	assert.Contains(t, html, "19.10.–23.10.")
	assert.Contains(t, html, "Kalender zuletzt aktualisiert am 21.10.2026 um 12:00:00 Uhr")
	assert.Contains(t, html, `data-ready="true"`)

	for _, name := range []string{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag"} {
		assert.Contains(t, html, ">"+name+"<")
	}
	assert.NotContains(t, html, "Samstag")

	assert.Equal(t, 1, strings.Count(html, `class="day today"`))
	assert.Contains(t, html, `<div id="d2-label" class="day-name">Mittwoch</div>`)

	assert.Contains(t, html, `<div class="badge all">Ganztägig</div>`)
	assert.Contains(t, html, `<div class="event highlight">`)
	assert.Contains(t, html, `<div class="badge">09:00–10:30</div>`)
	assert.Contains(t, html, "Jour fixe &lt;intern&gt;")
	assert.Equal(t, 3, strings.Count(html, `<div class="no-events">–</div>`))
}

func TestHTMLTodayOutsideWindow(t *testing.T) {
	view, loc := testView(t)

	out, err := Bytes(view, germanPage(time.Date(2026, 10, 25, 12, 0, 0, 0, loc)))
	require.NoError(t, err)

	assert.NotContains(t, string(out), `class="day today"`)
}

func TestHTMLDefaultsAndErrors(t *testing.T) {
	view, _ := testView(t)

	out, err := Bytes(view, DefaultPage())
	require.NoError(t, err)
	assert.Contains(t, string(out), "Week (CW 43)")
	assert.Contains(t, string(out), "Oct 19–Oct 23")

	_, err = Bytes(week.View{}, DefaultPage())
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "calendar", "index.html")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Error(t, WriteFile("", nil))
}
