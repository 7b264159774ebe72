package model

import "time"

// Attendee is a single ATTENDEE entry on an occurrence: the attendee
// address and their participation status (PARTSTAT), both as they
// appeared in the feed.
type Attendee struct {
	Email    string
	PartStat string
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization). This is
// the unit the filter pipeline consumes.
type Occurrence struct {
	SourceID string // calendar source ID
	UID      string // iCalendar UID

	Summary string

	// Status is the raw STATUS value ("" when the feed carries none).
	Status string

	// Attendees are the ATTENDEE entries in document order; empty for
	// events without invitations.
	Attendees []Attendee

	AllDay bool

	// Start / End are in the configured display timezone. All-day
	// occurrences are snapped to [midnight, next midnight).
	Start time.Time
	End   time.Time
}

// FilteredEvent is an occurrence that survived the filter pipeline,
// ready for column layout. Start and End are in the display timezone;
// AllDay distinguishes calendar-day events from timed ones.
type FilteredEvent struct {
	Summary string
	AllDay  bool
	Start   time.Time
	End     time.Time

	// ColumnEnd is max(End, Start+minimum column span). The layout
	// engine closes the event's column at ColumnEnd rather than End so
	// short events keep their visual slot reserved; it is not part of
	// the response.
	ColumnEnd time.Time
}

// SentinelColumn marks events rendered full-width outside the
// column-packed lane (all-day and alarm-marked events).
const SentinelColumn = -1

// LayoutEvent is the final output unit: a filtered event plus its
// assigned display column. Column is SentinelColumn for all-day and
// alarm-marked events, otherwise a 0-based slot index.
type LayoutEvent struct {
	FilteredEvent
	Column int
}
