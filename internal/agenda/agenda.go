package agenda

import (
	"context"
	"sort"
	"time"

	"wristcal/internal/ics"
	appLog "wristcal/internal/log"
	"wristcal/internal/model"
)

// Service aggregates events across feeds: fetch per feed with failure
// isolation, expand recurrences, filter, lay out columns once across
// the union, and sort for display.
type Service struct {
	cache         *ics.Cache
	loc           *time.Location
	minColumnSpan time.Duration
	alarmMarker   string
}

// New builds an aggregation service. loc is the display timezone all
// event times are converted into; minColumnSpan and alarmMarker feed
// the filter and layout stages.
func New(cache *ics.Cache, loc *time.Location, minColumnSpan time.Duration, alarmMarker string) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		cache:         cache,
		loc:           loc,
		minColumnSpan: minColumnSpan,
		alarmMarker:   alarmMarker,
	}
}

// Request carries one aggregation query.
type Request struct {
	Sources           []ics.Source
	Identities        []string
	ExcludedSummaries []string

	// WindowStart/WindowEnd bound timed events; DayWindowEnd bounds
	// all-day expansion. The two horizons are independent.
	WindowStart  time.Time
	WindowEnd    time.Time
	DayWindowEnd time.Time

	ForceCacheMiss bool
}

// Result is the aggregated, laid-out, display-sorted event list.
type Result struct {
	Events  []model.LayoutEvent
	Columns int
}

// Events runs the full pipeline. A feed that fails to fetch or parse
// contributes nothing and is logged; it never fails the response.
func (s *Service) Events(ctx context.Context, req Request) Result {
	rangeEnd := req.WindowEnd
	if req.DayWindowEnd.After(rangeEnd) {
		rangeEnd = req.DayWindowEnd
	}

	filterCfg := FilterConfig{
		Identities:        req.Identities,
		ExcludedSummaries: req.ExcludedSummaries,
		WindowEnd:         req.WindowEnd,
		MinColumnSpan:     s.minColumnSpan,
	}

	// Survivors accumulate across all feeds before layout runs once
	// over the union; packing columns per feed would let events from
	// different feeds collide.
	filtered := make([]model.FilteredEvent, 0)

	for _, src := range req.Sources {
		parsed, err := s.cache.Get(ctx, src, req.ForceCacheMiss)
		if err != nil {
			appLog.Error("feed skipped", err, "id", src.ID)
			continue
		}

		expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
			DisplayLocation: s.loc,
			RangeStart:      req.WindowStart,
			RangeEnd:        rangeEnd,
		})
		if err != nil {
			appLog.Error("feed expansion skipped", err, "id", src.ID)
			continue
		}
		if len(expanded.TruncatedEvents) > 0 {
			appLog.Info("feed expansion truncated", "id", src.ID, "uids", expanded.TruncatedEvents)
		}

		for _, occ := range expanded.Occurrences {
			if ev, ok := FilterOccurrence(occ, filterCfg); ok {
				filtered = append(filtered, ev)
			}
		}
	}

	events, columns := Layout(filtered, s.alarmMarker)

	// The user-visible ordering contract: (start, end, column, summary)
	// ascending. Distinct from the sweep line's internal edge order.
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Summary < b.Summary
	})

	return Result{Events: events, Columns: columns}
}
