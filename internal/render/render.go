// Package render turns a computed week into the HTML page shown on the
// display.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"weekcal/internal/model"
	"weekcal/internal/week"
)

//go:embed templates/week.html.tmpl
var templateFS embed.FS

var weekTemplate = template.Must(template.ParseFS(templateFS, "templates/week.html.tmpl"))

// Page holds the presentation settings of the rendered page.
type Page struct {
	Title string
	Lang  string
	// WeekLabel precedes the ISO week number in the heading, e.g. "KW".
	WeekLabel string
	// DayNames are indexed by time.Weekday.
	DayNames     []string
	DateFormat   string
	FooterFormat string
	UpdatedText  string
	NoEvents     string
	// Highlight keywords mark tiles whose summary contains one of them
	// (case-insensitive).
	Highlight []string

	// GeneratedAt is "now" for the today marker and the footer.
	GeneratedAt time.Time
}

// DefaultPage returns English presentation settings.
func DefaultPage() Page {
	return Page{
		Title:        "Week",
		Lang:         "en",
		WeekLabel:    "CW",
		DayNames:     []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		DateFormat:   "Jan 2",
		FooterFormat: "2006-01-02 15:04:05",
		UpdatedText:  "Last updated",
		NoEvents:     "–",
	}
}

type pageData struct {
	Lang     string
	Title    string
	Heading  string
	Range    string
	Days     []dayData
	NoEvents string
	Footer   string
}

type dayData struct {
	Name  string
	Date  string
	Today bool
	Tiles []tileData
}

type tileData struct {
	Label     string
	Summary   string
	AllDay    bool
	Highlight bool
}

// HTML renders view as a complete HTML document.
func HTML(w io.Writer, view week.View, page Page) error {
	if view.Window.Location == nil {
		return errors.New("render: view has no window")
	}
	def := DefaultPage()
	if len(page.DayNames) != 7 {
		page.DayNames = def.DayNames
	}
	if page.DateFormat == "" {
		page.DateFormat = def.DateFormat
	}
	if page.FooterFormat == "" {
		page.FooterFormat = def.FooterFormat
	}

	loc := view.Window.Location
	first, last := view.Window.Days[0], view.Window.Days[model.WindowDays-1]
	_, isoWeek := first.In(loc).ISOWeek()

	data := pageData{
		Lang:     page.Lang,
		Title:    page.Title,
		Heading:  heading(page, isoWeek),
		Range:    first.Format(page.DateFormat) + "–" + last.Format(page.DateFormat),
		NoEvents: page.NoEvents,
	}

	var today model.LocalDate
	if !page.GeneratedAt.IsZero() {
		today = model.DateOf(page.GeneratedAt.In(loc))
		data.Footer = strings.TrimSpace(page.UpdatedText + " " + page.GeneratedAt.In(loc).Format(page.FooterFormat))
	}

	for _, col := range view.Columns() {
		day := dayData{
			Name:  page.DayNames[col.Date.Weekday()],
			Date:  col.Date.Format(page.DateFormat),
			Today: col.Date == today,
		}
		for _, t := range col.Tiles {
			day.Tiles = append(day.Tiles, tileData{
				Label:     t.Label,
				Summary:   t.Summary,
				AllDay:    t.AllDay,
				Highlight: highlighted(t.Summary, page.Highlight),
			})
		}
		data.Days = append(data.Days, day)
	}

	return weekTemplate.Execute(w, data)
}

// Bytes renders view into memory.
func Bytes(view week.View, page Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := HTML(&buf, view, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func heading(page Page, isoWeek int) string {
	if page.WeekLabel == "" {
		return page.Title
	}
	return fmt.Sprintf("%s (%s %d)", page.Title, page.WeekLabel, isoWeek)
}

func highlighted(summary string, keywords []string) bool {
	s := strings.ToLower(summary)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// WriteFile writes data to path atomically via a temp file in the same
// directory, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("render: output path is empty")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".weekcal-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
