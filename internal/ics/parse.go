package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ical "github.com/arran4/golang-ical"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

var (
	// ErrEmptyBody is returned for an empty payload.
	ErrEmptyBody = errors.New("empty ICS body")
	// ErrNotCalendar is returned when the payload is not a VCALENDAR, e.g.
	// an HTML login page served instead of the feed.
	ErrNotCalendar = errors.New("payload is not an iCalendar document")
	// ErrMissingStart rejects a VEVENT without DTSTART.
	ErrMissingStart = errors.New("missing DTSTART")
	// ErrInvalidValue rejects an unparseable date, date-time or duration.
	ErrInvalidValue = errors.New("invalid value")
)

// Parse parses a single ICS payload into master events and override
// instances.
//
//   - Malformed VEVENTs are logged and skipped; only a payload that is not a
//     calendar at all is an error.
//   - Date values keep their shape (DATE, floating, zoned) so the display
//     zone is applied later, in one place.
//   - RRULE is kept as text; expansion happens in internal/week.
func Parse(src Source, body []byte) (model.Feed, error) {
	var feed model.Feed

	if err := validateCalendar(body); err != nil {
		appLog.Error("ics payload rejected", err, "id", src.ID, "url", redactURL(src.URL))
		return feed, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return feed, err
	}

	skipped := 0
	for _, ve := range cal.Events() {
		ev, rid, perr := parseVEvent(src, ve)
		if perr != nil {
			skipped++
			appLog.Warn("ics vevent skipped", "id", src.ID, "uid", ev.UID, "summary", ev.Summary, "reason", perr.Error())
			continue
		}
		if rid != nil {
			feed.Overrides = append(feed.Overrides, model.Override{RawEvent: ev, RecurrenceID: *rid})
			continue
		}
		feed.Events = append(feed.Events, ev)
	}

	appLog.Info("ics parse completed",
		"id", src.ID,
		"url", redactURL(src.URL),
		"event_count", len(feed.Events),
		"override_count", len(feed.Overrides),
		"skipped", skipped,
	)
	return feed, nil
}

func validateCalendar(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ErrEmptyBody
	}
	upper := strings.ToUpper(string(trimmed[:min(len(trimmed), 64)]))
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("%w: received HTML, check whether the URL requires authentication", ErrNotCalendar)
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		return ErrNotCalendar
	}
	return nil
}

// parseVEvent converts one VEVENT. rid is non-nil for RECURRENCE-ID instances.
func parseVEvent(src Source, ve *ical.VEvent) (model.RawEvent, *model.TimeValue, error) {
	var out model.RawEvent
	out.SourceID = src.ID

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			out.Seq = n
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = singleLine(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Status = strings.TrimSpace(p.Value)
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		out.Organizer = strings.TrimSpace(p.Value)
		out.OrganizerName = strings.Trim(param(p.ICalParameters, "CN"), `"`)
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || strings.TrimSpace(dtStart.Value) == "" {
		return out, nil, ErrMissingStart
	}
	start, err := parseTimeValue(dtStart.Value, dtStart.ICalParameters)
	if err != nil {
		return out, nil, fmt.Errorf("DTSTART: %w", err)
	}
	out.Start = start

	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil && strings.TrimSpace(p.Value) != "" {
		end, err := parseTimeValue(p.Value, p.ICalParameters)
		if err != nil {
			return out, nil, fmt.Errorf("DTEND: %w", err)
		}
		out.End = end
	} else if p := ve.GetProperty(ical.ComponentPropertyDuration); p != nil {
		span, err := ParseDuration(p.Value)
		if err != nil {
			return out, nil, fmt.Errorf("DURATION: %w", err)
		}
		out.Duration = &span
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = strings.TrimSpace(p.Value)
	}

	// EXDATE and RDATE can appear multiple times, each with a value list.
	out.ExDates = parseValueList(ve.GetProperties(ical.ComponentPropertyExdate), out.UID, "EXDATE")
	out.RDates = parseValueList(ve.GetProperties(ical.ComponentPropertyRdate), out.UID, "RDATE")

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		rid, err := parseTimeValue(p.Value, p.ICalParameters)
		if err != nil {
			return out, nil, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		return out, &rid, nil
	}

	return out, nil, nil
}

func parseValueList(props []*ical.IANAProperty, uid, name string) []model.TimeValue {
	var out []model.TimeValue
	for _, p := range props {
		if strings.EqualFold(param(p.ICalParameters, "VALUE"), "PERIOD") {
			appLog.Debug("ics: period values are not supported", "uid", uid, "property", name)
			continue
		}
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := parseTimeValue(part, p.ICalParameters)
			if err != nil {
				appLog.Warn("ics: value ignored", "uid", uid, "property", name, "value", part)
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

func param(params map[string][]string, key string) string {
	if params == nil {
		return ""
	}
	if vs, ok := params[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// singleLine folds the multi-line TEXT values some clients produce into one
// line for a tile.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
