// Package refresh runs one fetch → parse → build → render cycle and keeps
// the latest result for the HTTP server.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"weekcal/internal/capture"
	"weekcal/internal/config"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/render"
	"weekcal/internal/week"
)

var (
	// ErrNoSources means no ICS source with a URL is configured.
	ErrNoSources = errors.New("no ICS sources configured")
	// ErrNoFeeds means no configured source produced a usable calendar.
	ErrNoFeeds = errors.New("no ICS feed could be fetched and parsed")
)

// Fetcher retrieves raw ICS bodies; *ics.Fetcher implements it.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, []error)
}

// CaptureFunc takes a screenshot; capture.CapturePNG implements it.
type CaptureFunc func(ctx context.Context, opts capture.Options) error

// SourceStatus reports how one source fared in a run.
type SourceStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	FromCache bool   `json:"from_cache"`
	Events    int    `json:"events"`
	Overrides int    `json:"overrides"`
	Error     string `json:"error,omitempty"`
}

// Snapshot is the result of one successful run.
type Snapshot struct {
	RunID       string
	GeneratedAt time.Time
	View        week.View
	Sources     []SourceStatus
	HTML        []byte
}

// Store holds the latest snapshot. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	latest *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Latest returns the most recent snapshot, if any.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

func (s *Store) set(snap Snapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
}

// Runner executes refresh cycles for one configuration.
type Runner struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher Fetcher
	store   *Store

	capture    CaptureFunc
	captureURL string

	// serializes runs triggered by cron and by HTTP
	runMu sync.Mutex
}

// NewRunner validates cfg and prepares a Runner. A nil fetcher uses an
// ics.Fetcher built from cfg.Fetch.
func NewRunner(cfg *config.Config, fetcher Fetcher, store *Store) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("refresh: config is nil")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = ics.NewFetcher(cfg.Fetch.CacheDir, time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second)
	}
	if store == nil {
		store = NewStore()
	}
	return &Runner{
		cfg:     cfg,
		loc:     loc,
		fetcher: fetcher,
		store:   store,
		capture: capture.CapturePNG,
	}, nil
}

// SetCapture replaces the screenshot function and the URL it is pointed at.
// An empty url captures the written HTML file.
func (r *Runner) SetCapture(fn CaptureFunc, url string) {
	r.capture = fn
	r.captureURL = url
}

// Store returns the store runs publish to.
func (r *Runner) Store() *Store {
	return r.store
}

// Location returns the display zone.
func (r *Runner) Location() *time.Location {
	return r.loc
}

// Run performs one refresh cycle for the week containing now.
func (r *Runner) Run(ctx context.Context, now time.Time) (Snapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	runID := uuid.NewString()
	started := time.Now()

	sources := r.sources()
	if len(sources) == 0 {
		return Snapshot{}, ErrNoSources
	}

	appLog.Info("refresh start", "run_id", runID, "sources", len(sources))

	feed, statuses := r.collect(ctx, runID, sources)
	usable := 0
	for _, st := range statuses {
		if st.Error == "" {
			usable++
		}
	}
	if usable == 0 {
		return Snapshot{}, ErrNoFeeds
	}

	window := week.NewWindow(now, r.loc, r.cfg.FirstWeekday())
	view := week.Build(feed, window, r.buildOptions())

	page := PageFor(r.cfg)
	page.GeneratedAt = now
	html, err := render.Bytes(view, page)
	if err != nil {
		return Snapshot{}, fmt.Errorf("render: %w", err)
	}

	if r.cfg.Output.HTML != "" {
		if err := render.WriteFile(r.cfg.Output.HTML, html); err != nil {
			return Snapshot{}, fmt.Errorf("write %s: %w", r.cfg.Output.HTML, err)
		}
	}

	snap := Snapshot{
		RunID:       runID,
		GeneratedAt: now,
		View:        view,
		Sources:     statuses,
		HTML:        html,
	}
	r.store.set(snap)

	appLog.Info("refresh done",
		"run_id", runID,
		"window_start", window.Days[0].String(),
		"masters", view.Stats.Masters,
		"occurrences", view.Stats.Occurrences,
		"tiles", view.Stats.Tiles,
		"skipped", view.Stats.Skipped,
		"elapsed", time.Since(started).Round(time.Millisecond).String(),
	)

	r.maybeCapture(ctx, runID)
	return snap, nil
}

func (r *Runner) sources() []ics.Source {
	out := make([]ics.Source, 0, len(r.cfg.ICS))
	for _, c := range r.cfg.ICS {
		if c.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: c.ID, Name: c.Name, URL: c.URL})
	}
	return out
}

// collect fetches and parses every source and merges the results.
func (r *Runner) collect(ctx context.Context, runID string, sources []ics.Source) (model.Feed, []SourceStatus) {
	results, errs := r.fetcher.FetchAll(ctx, sources)

	statuses := make([]SourceStatus, 0, len(sources))
	fetched := make(map[string]ics.FetchResult, len(results))
	for _, res := range results {
		fetched[res.Source.ID] = res
	}
	if len(errs) > 0 {
		appLog.Warn("refresh: some sources failed", "run_id", runID, "failed", len(errs))
	}

	var feed model.Feed
	for _, src := range sources {
		st := SourceStatus{ID: src.ID, Name: src.Name}
		res, ok := fetched[src.ID]
		if !ok {
			st.Error = "fetch failed"
			statuses = append(statuses, st)
			continue
		}
		st.FromCache = res.FromCache

		parsed, err := ics.Parse(res.Source, res.Body)
		if err != nil {
			st.Error = err.Error()
			statuses = append(statuses, st)
			continue
		}
		st.Events = len(parsed.Events)
		st.Overrides = len(parsed.Overrides)
		feed.Events = append(feed.Events, parsed.Events...)
		feed.Overrides = append(feed.Overrides, parsed.Overrides...)
		statuses = append(statuses, st)
	}
	return feed, statuses
}

func (r *Runner) buildOptions() week.Options {
	c := r.cfg
	return week.Options{
		Expand: week.ExpandOptions{
			ZeroDurationPad:        time.Duration(c.Expand.ZeroDurationPadMinutes) * time.Minute,
			MaxOccurrencesPerEvent: c.Expand.MaxOccurrencesPerEvent,
			IsDeleted:              week.DeletedMatcher(c.Deleted.Organizers, c.Deleted.Summaries),
		},
		Labels: week.Labels{
			AllDay:   c.Labels.AllDay,
			Start:    c.Labels.Start,
			End:      c.Labels.End,
			Untitled: c.Labels.Untitled,
		},
		Workers: c.Expand.Workers,
	}
}

// maybeCapture screenshots the page when capture is enabled. Failures are
// logged; the HTML output stands on its own.
func (r *Runner) maybeCapture(ctx context.Context, runID string) {
	if !r.cfg.Capture.Enabled || r.capture == nil {
		return
	}
	url := r.captureURL
	if url == "" && r.cfg.Output.HTML != "" {
		abs, err := filepath.Abs(r.cfg.Output.HTML)
		if err == nil {
			url = "file://" + abs
		}
	}
	if url == "" {
		appLog.Warn("capture skipped: no page to capture", "run_id", runID)
		return
	}

	opts := capture.Options{
		URL:        url,
		OutputPath: r.cfg.Capture.Output,
		Width:      r.cfg.Capture.Width,
		Height:     r.cfg.Capture.Height,
		Timeout:    time.Duration(r.cfg.Capture.TimeoutSeconds) * time.Second,
	}
	if err := r.capture(ctx, opts); err != nil {
		appLog.Error("capture failed", err, "run_id", runID, "output", opts.OutputPath)
		return
	}
	appLog.Info("capture written", "run_id", runID, "output", opts.OutputPath)
}

// PageFor maps the output and label settings of cfg onto render.Page.
func PageFor(cfg *config.Config) render.Page {
	o := cfg.Output
	return render.Page{
		Title:        o.Title,
		Lang:         o.Lang,
		WeekLabel:    o.WeekLabel,
		DayNames:     o.DayNames,
		DateFormat:   o.DateFormat,
		FooterFormat: o.FooterFormat,
		UpdatedText:  o.UpdatedText,
		NoEvents:     cfg.Labels.NoEvents,
		Highlight:    cfg.Highlight,
	}
}
