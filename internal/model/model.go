package model

import "time"

// RawEvent is a master VEVENT as delivered by the event source, before
// recurrence expansion. Start/End/ExDates/RDates keep the representation
// found in the feed; the week package normalizes them into the display zone.
type RawEvent struct {
	SourceID string // calendar source ID (e.g., config ICS ID)
	UID      string // iCalendar UID, may be empty
	Seq      int    // SEQUENCE, used to pick between competing overrides

	Summary   string
	Status    string
	Organizer string // ORGANIZER value, e.g. "mailto:someone@example.com"
	// OrganizerName is the CN parameter of ORGANIZER, if any.
	OrganizerName string

	Start TimeValue
	// End is the exclusive end. Zero if the feed carried no DTEND.
	End TimeValue
	// Duration is set when the feed carried DURATION instead of DTEND.
	Duration *Span

	// RRule is the RRULE value without the "RRULE:" prefix.
	RRule   string
	ExDates []TimeValue
	RDates  []TimeValue
}

// AllDay reports whether the event is an all-day event, i.e. its start has
// no clock component.
func (e RawEvent) AllDay() bool {
	return e.Start.Kind == ValueDate
}

// Cancelled reports whether STATUS marks the event as cancelled.
func (e RawEvent) Cancelled() bool {
	return isCancelled(e.Status)
}

// Override replaces one instance of a recurring master. It shares the
// master's UID and carries the instance's original start in RecurrenceID.
type Override struct {
	RawEvent
	RecurrenceID TimeValue
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion, override substitution and exclusion filtering).
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID of the originating master

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the original (pre-override) start instant.
	InstanceKey string

	Summary string
	AllDay  bool

	// Overridden is true when a RECURRENCE-ID instance replaced the
	// generated start/end/summary.
	Overridden bool

	// Start / End are absolute instants expressed in the display zone.
	// End is exclusive.
	Start time.Time
	End   time.Time
}

// DayTile is one occurrence's presence on one local day of the window.
type DayTile struct {
	Date LocalDate

	Label   string
	Summary string

	// AllDay is the effective all-day flag: true whenever Label is the
	// all-day label, even for timed occurrences.
	AllDay bool

	// Start is the occurrence's absolute start and the primary sort key.
	Start time.Time
	End   time.Time

	SourceID string
	UID      string
}

// Feed is the event source's output for one run: master events and the
// override instances that modify them.
type Feed struct {
	Events    []RawEvent
	Overrides []Override
}
