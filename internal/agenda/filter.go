package agenda

import (
	"strings"
	"time"

	"wristcal/internal/model"
)

// partStatDeclined is the PARTSTAT value marking a declined invitation.
const partStatDeclined = "DECLINED"

// statusConfirmed is the only STATUS value (besides absence) an event
// may carry and still be shown.
const statusConfirmed = "CONFIRMED"

// FilterConfig carries the per-request inputs of the filter pipeline.
type FilterConfig struct {
	// Identities are the viewer's email addresses. An event any of them
	// declined is hidden. Empty disables the declined check.
	Identities []string

	// ExcludedSummaries hides events whose summary matches exactly.
	ExcludedSummaries []string

	// WindowEnd is the display-window end for timed events; a timed
	// event ending after it is hidden. All-day events are exempt (they
	// render in a separate lane with its own horizon).
	WindowEnd time.Time

	// MinColumnSpan pads each event's layout footprint so very short
	// events still reserve a visible slot.
	MinColumnSpan time.Duration
}

// FilterOccurrence runs one occurrence through the predicate pipeline,
// short-circuiting on the first rejection. Rejections are silent:
// malformed and declined events are routine feed noise, not errors.
func FilterOccurrence(occ model.Occurrence, cfg FilterConfig) (model.FilteredEvent, bool) {
	// Required fields.
	if occ.Summary == "" || occ.Start.IsZero() || occ.End.IsZero() {
		return model.FilteredEvent{}, false
	}

	// Declined by one of the viewer's identities.
	if declinedBy(occ.Attendees, cfg.Identities) {
		return model.FilteredEvent{}, false
	}

	// Status: absent counts as confirmed.
	if occ.Status != "" && occ.Status != statusConfirmed {
		return model.FilteredEvent{}, false
	}

	// Degenerate durations never reach layout.
	if !occ.End.After(occ.Start) {
		return model.FilteredEvent{}, false
	}

	// Timed events must end inside the display window.
	if !occ.AllDay && occ.End.After(cfg.WindowEnd) {
		return model.FilteredEvent{}, false
	}

	// Explicit exclusion list.
	for _, excluded := range cfg.ExcludedSummaries {
		if occ.Summary == excluded {
			return model.FilteredEvent{}, false
		}
	}

	columnEnd := occ.End
	if min := occ.Start.Add(cfg.MinColumnSpan); columnEnd.Before(min) {
		columnEnd = min
	}

	return model.FilteredEvent{
		Summary:   occ.Summary,
		AllDay:    occ.AllDay,
		Start:     occ.Start,
		End:       occ.End,
		ColumnEnd: columnEnd,
	}, true
}

// declinedBy reports whether any attendee entry both declined and
// matches one of the viewer's identities. Matching is case-insensitive
// on both sides, with any transport-scheme prefix (mailto:) stripped
// from the attendee address.
func declinedBy(attendees []model.Attendee, identities []string) bool {
	if len(attendees) == 0 || len(identities) == 0 {
		return false
	}

	for _, att := range attendees {
		if att.PartStat != partStatDeclined {
			continue
		}
		email := normalizeEmail(att.Email)
		for _, id := range identities {
			if email == strings.ToLower(id) {
				return true
			}
		}
	}
	return false
}

// normalizeEmail lower-cases an ATTENDEE address and strips a scheme
// prefix like "mailto:". Email addresses themselves never contain a
// colon, so cutting at the first one is safe.
func normalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if i := strings.Index(email, ":"); i >= 0 {
		email = email[i+1:]
	}
	return email
}
