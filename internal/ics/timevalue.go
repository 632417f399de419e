package ics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)

// Exchange and Outlook feeds use Windows zone names in TZID.
var windowsToIANA = map[string]string{
	"W. Europe Standard Time":        "Europe/Berlin",
	"Central Europe Standard Time":   "Europe/Budapest",
	"Romance Standard Time":          "Europe/Paris",
	"Central European Standard Time": "Europe/Warsaw",
	"GMT Standard Time":              "Europe/London",
	"GTB Standard Time":              "Europe/Bucharest",
	"FLE Standard Time":              "Europe/Helsinki",
	"E. Europe Standard Time":        "Europe/Chisinau",
	"Russian Standard Time":          "Europe/Moscow",
	"UTC":                            "UTC",
	"Eastern Standard Time":          "America/New_York",
	"Central Standard Time":          "America/Chicago",
	"Mountain Standard Time":         "America/Denver",
	"Pacific Standard Time":          "America/Los_Angeles",
	"Tokyo Standard Time":            "Asia/Tokyo",
	"Korea Standard Time":            "Asia/Seoul",
	"China Standard Time":            "Asia/Shanghai",
	"India Standard Time":            "Asia/Kolkata",
	"AUS Eastern Standard Time":      "Australia/Sydney",
}

var (
	zoneMu    sync.Mutex
	zoneCache = map[string]*time.Location{}
)

// loadZone resolves a TZID value. Unknown zones return nil.
func loadZone(tzid string) *time.Location {
	tzid = strings.Trim(strings.TrimSpace(tzid), `"`)
	if tzid == "" {
		return nil
	}

	zoneMu.Lock()
	defer zoneMu.Unlock()

	if loc, ok := zoneCache[tzid]; ok {
		return loc
	}

	name := tzid
	if mapped, ok := windowsToIANA[tzid]; ok {
		name = mapped
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = nil
	}
	zoneCache[tzid] = loc
	return loc
}

// parseTimeValue parses a DATE or DATE-TIME value, keeping its shape:
//
//	VALUE=DATE or 8 digits  -> calendar date
//	trailing Z              -> zoned, UTC
//	TZID=<known zone>       -> zoned, that zone
//	otherwise               -> floating
func parseTimeValue(raw string, params map[string][]string) (model.TimeValue, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.TimeValue{}, fmt.Errorf("%w: empty", ErrInvalidValue)
	}

	if strings.EqualFold(param(params, "VALUE"), "DATE") || len(raw) == len(dateLayout) {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return model.TimeValue{}, fmt.Errorf("%w: date %q", ErrInvalidValue, raw)
		}
		return model.DateValue(t.Year(), t.Month(), t.Day()), nil
	}

	if strings.HasSuffix(raw, "Z") {
		t, err := time.Parse(dateTimeLayout, strings.TrimSuffix(raw, "Z"))
		if err != nil {
			return model.TimeValue{}, fmt.Errorf("%w: date-time %q", ErrInvalidValue, raw)
		}
		return model.ZonedValue(t.UTC()), nil
	}

	if tzid := param(params, "TZID"); tzid != "" {
		if loc := loadZone(tzid); loc != nil {
			t, err := time.ParseInLocation(dateTimeLayout, raw, loc)
			if err != nil {
				return model.TimeValue{}, fmt.Errorf("%w: date-time %q", ErrInvalidValue, raw)
			}
			return model.ZonedValue(t), nil
		}
		appLog.Warn("ics: unknown TZID, treating value as floating", "tzid", tzid, "value", raw)
	}

	t, err := time.Parse(dateTimeLayout, raw)
	if err != nil {
		return model.TimeValue{}, fmt.Errorf("%w: date-time %q", ErrInvalidValue, raw)
	}
	return model.FloatingValue(t), nil
}
