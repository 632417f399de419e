package week

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 5000
)

// ErrMissingStart is returned for a master without DTSTART.
var ErrMissingStart = errors.New("event has no start")

// ExpandOptions controls how recurrence expansion is performed.
type ExpandOptions struct {
	// ZeroDurationPad widens the lower search bound for events whose
	// duration is zero. Events with a positive duration are padded by
	// their duration.
	ZeroDurationPad time.Duration

	// MaxOccurrencesPerEvent is a safety cap to avoid extremely large
	// expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int

	// IsDeleted marks overrides that stand for an administratively deleted
	// instance. Matching instances are suppressed. Nil disables the check.
	IsDeleted func(model.Override) bool
}

// Expander produces the concrete occurrences of master events.
type Expander struct {
	opts ExpandOptions
}

func NewExpander(opts ExpandOptions) *Expander {
	if opts.MaxOccurrencesPerEvent <= 0 {
		opts.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}
	if opts.ZeroDurationPad < 0 {
		opts.ZeroDurationPad = 0
	}
	return &Expander{opts: opts}
}

// Expand returns the occurrences of master that intersect window, with
// EXDATE instants removed and RECURRENCE-ID overrides substituted.
// Overridden instances are kept even when the override moves them out of
// the window. Cancelled masters yield nothing. The only error is a master
// that cannot be expanded at all (no start, unparseable RRULE).
func (x *Expander) Expand(master model.RawEvent, overrides OverrideIndex, window model.WeekWindow) ([]model.Occurrence, error) {
	if master.Cancelled() {
		return nil, nil
	}
	if master.Start.IsZero() {
		return nil, ErrMissingStart
	}

	loc := window.Location
	start, end := resolveSpan(master, loc)

	// Zoned masters recur on the wall clock of their own TZID.
	ruleLoc := loc
	if master.Start.Kind == model.ValueZoned {
		ruleLoc = master.Start.Wall.Location()
	}
	ruleStart, ruleEnd := resolveSpan(master, ruleLoc)
	duration := wallDuration(ruleStart, ruleEnd)
	excluded := instantSet(master.ExDates, loc)

	pad := duration
	if pad <= 0 {
		pad = x.opts.ZeroDurationPad
	}
	searchStart := window.Start.Add(-pad)

	out := make([]model.Occurrence, 0)

	if master.RRule == "" {
		if occ, ok := x.instance(master, start, end, overrides, window); ok {
			out = append(out, occ)
		}
	} else {
		rule, err := parseRule(master.RRule, ruleStart)
		if err != nil {
			return nil, fmt.Errorf("parse rrule %q: %w", master.RRule, err)
		}

		starts := rule.Between(searchStart.In(ruleLoc), window.End.In(ruleLoc), true)
		if len(starts) > x.opts.MaxOccurrencesPerEvent {
			starts = starts[:x.opts.MaxOccurrencesPerEvent]
			appLog.Warn("expand: truncated occurrences due to cap",
				"uid", master.UID, "cap", x.opts.MaxOccurrencesPerEvent)
		}

		for _, s := range starts {
			if excluded[keyOf(s)] {
				continue
			}
			occStart, occEnd := s.In(loc), addWall(s, duration).In(loc)
			if occ, ok := x.instance(master, occStart, occEnd, overrides, window); ok {
				out = append(out, occ)
			}
		}
	}

	for _, rd := range master.RDates {
		s := Normalize(rd, ruleLoc)
		if excluded[keyOf(s)] {
			continue
		}
		if s.Before(searchStart) || s.After(window.End) {
			continue
		}
		occStart, occEnd := s.In(loc), addWall(s, duration).In(loc)
		if occ, ok := x.instance(master, occStart, occEnd, overrides, window); ok {
			out = append(out, occ)
		}
	}

	return out, nil
}

// instance builds one occurrence starting at origStart, applying the
// override for that instant if any. ok is false when the instance is
// suppressed or does not intersect the window.
func (x *Expander) instance(master model.RawEvent, origStart, origEnd time.Time, overrides OverrideIndex, window model.WeekWindow) (model.Occurrence, bool) {
	occ := model.Occurrence{
		SourceID:    master.SourceID,
		UID:         master.UID,
		InstanceKey: origStart.Format(time.RFC3339Nano),
		Summary:     master.Summary,
		AllDay:      master.AllDay(),
		Start:       origStart,
		End:         origEnd,
	}

	ov, ok := overrides.Lookup(master.UID, origStart)
	if !ok {
		return occ, intersects(occ.Start, occ.End, window)
	}

	if ov.Cancelled() {
		appLog.Debug("expand: instance cancelled by override", "uid", master.UID, "instance", occ.InstanceKey)
		return occ, false
	}
	if x.opts.IsDeleted != nil && x.opts.IsDeleted(ov) {
		appLog.Debug("expand: instance deleted by override", "uid", master.UID, "instance", occ.InstanceKey)
		return occ, false
	}

	eff := ov.RawEvent
	occ.Start, occ.End = resolveSpan(eff, window.Location)
	occ.Summary = eff.Summary
	occ.AllDay = eff.AllDay()
	occ.Overridden = true
	return occ, true
}

func parseRule(text string, dtstart time.Time) (*rrule.RRule, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "RRULE:")
	if text == "" {
		return nil, errors.New("empty rule")
	}

	opt, err := rrule.StrToROptionInLocation(text, dtstart.Location())
	if err != nil {
		return nil, err
	}
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

func instantSet(values []model.TimeValue, loc *time.Location) map[instantKey]bool {
	set := make(map[instantKey]bool, len(values))
	for _, v := range values {
		if v.IsZero() {
			continue
		}
		set[keyOf(Normalize(v, loc))] = true
	}
	return set
}
