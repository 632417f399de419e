package week

import (
	"strings"
	"time"

	appLog "weekcal/internal/log"
	"weekcal/internal/model"
)

type instantKey struct {
	sec  int64
	nsec int
}

func keyOf(t time.Time) instantKey {
	return instantKey{sec: t.Unix(), nsec: t.Nanosecond()}
}

type overrideKey struct {
	uid string
	at  instantKey
}

// OverrideIndex maps (UID, original occurrence instant) to the override
// replacing that instance. It is built once per run and only read afterwards.
type OverrideIndex struct {
	byKey   map[overrideKey]model.Override
	dropped int
}

// NewOverrideIndex indexes overrides by UID and normalized RECURRENCE-ID.
// Overrides without UID or RECURRENCE-ID are dropped; when two overrides
// claim the same instance the higher SEQUENCE wins, ties keep the first.
func NewOverrideIndex(overrides []model.Override, loc *time.Location) OverrideIndex {
	ix := OverrideIndex{byKey: make(map[overrideKey]model.Override, len(overrides))}
	for _, ov := range overrides {
		if ov.UID == "" || ov.RecurrenceID.IsZero() {
			ix.dropped++
			appLog.Warn("override dropped: missing uid or recurrence id",
				"source", ov.SourceID, "uid", ov.UID, "summary", ov.Summary)
			continue
		}
		k := overrideKey{uid: ov.UID, at: keyOf(Normalize(ov.RecurrenceID, loc))}
		if prev, ok := ix.byKey[k]; ok && prev.Seq >= ov.Seq {
			continue
		}
		ix.byKey[k] = ov
	}
	return ix
}

// Lookup returns the override for the instance of uid originally starting at at.
func (ix OverrideIndex) Lookup(uid string, at time.Time) (model.Override, bool) {
	if uid == "" || ix.byKey == nil {
		return model.Override{}, false
	}
	ov, ok := ix.byKey[overrideKey{uid: uid, at: keyOf(at)}]
	return ov, ok
}

// Len is the number of indexed overrides.
func (ix OverrideIndex) Len() int { return len(ix.byKey) }

// Dropped is the number of structurally invalid overrides rejected.
func (ix OverrideIndex) Dropped() int { return ix.dropped }

// DeletedMatcher builds the predicate that marks an override as
// administratively deleted: any case-insensitive substring of organizers in
// its ORGANIZER value or CN, or of summaries in its SUMMARY. With no
// patterns it returns nil, i.e. nothing is treated as deleted.
func DeletedMatcher(organizers, summaries []string) func(model.Override) bool {
	orgs := lowerNonEmpty(organizers)
	sums := lowerNonEmpty(summaries)
	if len(orgs) == 0 && len(sums) == 0 {
		return nil
	}
	return func(ov model.Override) bool {
		org := strings.ToLower(ov.Organizer + " " + ov.OrganizerName)
		for _, p := range orgs {
			if strings.Contains(org, p) {
				return true
			}
		}
		sum := strings.ToLower(ov.Summary)
		for _, p := range sums {
			if strings.Contains(sum, p) {
				return true
			}
		}
		return false
	}
}

func lowerNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
