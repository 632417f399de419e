package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weekcal/internal/model"
)

// ParseDuration parses an RFC 5545 DURATION value such as "PT1H30M",
// "P1D", "P2W" or "-PT15M". Weeks and days are nominal; hours, minutes and
// seconds are exact.
func ParseDuration(raw string) (model.Span, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	bad := func() (model.Span, error) {
		return model.Span{}, fmt.Errorf("%w: duration %q", ErrInvalidValue, raw)
	}

	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return bad()
	}
	s = s[1:]

	var span model.Span
	inTime := false
	num := ""
	seen := false
	timeSeen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
			continue
		case r == 'T':
			if inTime || num != "" {
				return bad()
			}
			inTime = true
			continue
		}

		if num == "" {
			return bad()
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return bad()
		}
		num = ""
		seen = true
		timeSeen = timeSeen || inTime

		switch {
		case r == 'W' && !inTime:
			span.Days += 7 * n
		case r == 'D' && !inTime:
			span.Days += n
		case r == 'H' && inTime:
			span.Exact += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			span.Exact += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			span.Exact += time.Duration(n) * time.Second
		default:
			return bad()
		}
	}
	if num != "" || !seen || (inTime && !timeSeen) {
		return bad()
	}

	span.Days *= sign
	span.Exact *= time.Duration(sign)
	return span, nil
}
