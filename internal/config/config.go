package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment overrides are applied by ApplyEnv after Load.

// DefaultSourceID is the ICS source id that ICS_URL sets.
const DefaultSourceID = "default"

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// FetchConfig tunes the HTTP fetch of ICS sources.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	CacheDir       string `yaml:"cache_dir" json:"cache_dir"`
}

// OutputConfig controls the rendered page and where it is written.
type OutputConfig struct {
	// HTML is the path the rendered page is written to. Empty disables the file.
	HTML  string `yaml:"html" json:"html"`
	Title string `yaml:"title" json:"title"`
	// WeekLabel precedes the ISO week number in the heading.
	WeekLabel string `yaml:"week_label" json:"week_label"`
	// DayNames are the column headings, one per weekday starting at Sunday.
	DayNames []string `yaml:"day_names" json:"day_names"`
	// DateFormat is a Go time layout for column dates and the header range.
	DateFormat string `yaml:"date_format" json:"date_format"`
	// FooterFormat is a Go time layout for the "last updated" footer.
	FooterFormat string `yaml:"footer_format" json:"footer_format"`
	// UpdatedText precedes the footer timestamp.
	UpdatedText string `yaml:"updated_text" json:"updated_text"`
	// Lang is the html lang attribute.
	Lang string `yaml:"lang" json:"lang"`
}

// LabelsConfig holds the tile texts.
type LabelsConfig struct {
	AllDay   string `yaml:"all_day" json:"all_day"`
	Start    string `yaml:"start" json:"start"`
	End      string `yaml:"end" json:"end"`
	Untitled string `yaml:"untitled" json:"untitled"`
	NoEvents string `yaml:"no_events" json:"no_events"`
}

// ExpandConfig tunes recurrence expansion.
type ExpandConfig struct {
	// ZeroDurationPadMinutes widens the search window for zero-length events.
	ZeroDurationPadMinutes int `yaml:"zero_duration_pad_minutes" json:"zero_duration_pad_minutes"`
	MaxOccurrencesPerEvent int `yaml:"max_occurrences_per_event" json:"max_occurrences_per_event"`
	// Workers bounds parallel expansion; 0 uses all CPUs.
	Workers int `yaml:"workers" json:"workers"`
}

// DeletedConfig identifies override instances that stand for a deleted
// occurrence, e.g. ones re-issued by a cleanup account. Matching is a
// case-insensitive substring test.
type DeletedConfig struct {
	Organizers []string `yaml:"organizers" json:"organizers"`
	Summaries  []string `yaml:"summaries" json:"summaries"`
}

// CaptureConfig controls the optional PNG screenshot of the rendered page.
type CaptureConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	Output         string `yaml:"output" json:"output"`
	Width          int    `yaml:"width" json:"width"`
	Height         int    `yaml:"height" json:"height"`
	TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as the display zone (e.g. "Europe/Vienna").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the
	// window. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Highlight is a list of keywords that cause events to be rendered highlighted.
	Highlight []string `yaml:"highlight" json:"highlight"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Labels  LabelsConfig  `yaml:"labels" json:"labels"`
	Expand  ExpandConfig  `yaml:"expand" json:"expand"`
	Deleted DeletedConfig `yaml:"deleted" json:"deleted"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var defaultDayNames = []string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		ICS:       []ICSConfig{},
		Highlight: []string{},
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Vienna"
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Highlight == nil {
		c.Highlight = []string{}
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			c.ICS[i].ID = fmt.Sprintf("ics-%d", i+1)
		}
	}

	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = 30
	}
	if c.Fetch.CacheDir == "" {
		c.Fetch.CacheDir = "./var/ics-cache"
	}

	o := &c.Output
	if o.Title == "" {
		o.Title = "Wochenplan"
	}
	if o.WeekLabel == "" {
		o.WeekLabel = "KW"
	}
	if len(o.DayNames) != 7 {
		o.DayNames = append([]string(nil), defaultDayNames...)
	}
	if o.DateFormat == "" {
		o.DateFormat = "02.01."
	}
	if o.FooterFormat == "" {
		o.FooterFormat = "02.01.2006 um 15:04:05 Uhr"
	}
	if o.UpdatedText == "" {
		o.UpdatedText = "Kalender zuletzt aktualisiert am"
	}
	if o.Lang == "" {
		o.Lang = "de"
	}

	l := &c.Labels
	if l.AllDay == "" {
		l.AllDay = "Ganztägig"
	}
	if l.Start == "" {
		l.Start = "Start:"
	}
	if l.End == "" {
		l.End = "Ende:"
	}
	if l.Untitled == "" {
		l.Untitled = "Ohne Titel"
	}
	if l.NoEvents == "" {
		l.NoEvents = "–"
	}

	if c.Expand.ZeroDurationPadMinutes < 0 {
		c.Expand.ZeroDurationPadMinutes = 0
	}
	if c.Expand.MaxOccurrencesPerEvent <= 0 {
		c.Expand.MaxOccurrencesPerEvent = 5000
	}
	if c.Expand.Workers < 0 {
		c.Expand.Workers = 0
	}

	if c.Deleted.Organizers == nil {
		c.Deleted.Organizers = []string{}
	}
	if c.Deleted.Summaries == nil {
		c.Deleted.Summaries = []string{}
	}

	if c.Capture.Output == "" {
		c.Capture.Output = "./var/week.png"
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = 1920
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = 1080
	}
	if c.Capture.TimeoutSeconds <= 0 {
		c.Capture.TimeoutSeconds = 30
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FirstWeekday returns the weekday the window starts on.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Validate reports settings that cannot work at runtime.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.ICS))
	for _, src := range c.ICS {
		if seen[src.ID] {
			return fmt.Errorf("duplicate ics id %q", src.ID)
		}
		seen[src.ID] = true
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		return errors.New("basic_auth requires username and password")
	}
	return nil
}

// ApplyEnv loads envFile (if it exists) into the process environment and
// overlays the supported variables onto c:
//
//	ICS_URL            sets the url of the "default" source, adding it if needed
//	WEEKCAL_TIMEZONE   timezone
//	WEEKCAL_LISTEN     listen
//	WEEKCAL_LOG_LEVEL  log_level
//	WEEKCAL_OUTPUT     output.html
//
// Variables already present in the environment win over the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("ICS_URL")); v != "" {
		c.setDefaultSource(v)
	}
	if v := strings.TrimSpace(os.Getenv("WEEKCAL_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("WEEKCAL_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("WEEKCAL_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("WEEKCAL_OUTPUT")); v != "" {
		c.Output.HTML = v
	}
	return nil
}

func (c *Config) setDefaultSource(url string) {
	for i := range c.ICS {
		if c.ICS[i].ID == DefaultSourceID {
			c.ICS[i].URL = url
			return
		}
	}
	c.ICS = append(c.ICS, ICSConfig{ID: DefaultSourceID, Name: "Default", URL: url})
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".weekcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
