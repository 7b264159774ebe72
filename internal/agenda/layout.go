package agenda

import (
	"sort"
	"strings"

	"wristcal/internal/model"
)

// The layout engine sweeps a line over per-event start/end edges,
// assigning each timed event a display column so that overlapping
// events never share one. All-day events and alarm-marked events take
// the sentinel column and stay out of the timed lanes entirely.

const (
	edgeEnd = iota // end edges sort before start edges at equal instants
	edgeStart
)

type edge struct {
	ts   int64 // unix nanoseconds
	kind int
	// trueEnd breaks ties among simultaneous edges of one kind: the
	// event occupying its column longest claims a low-numbered column
	// first, which keeps long events visually stable.
	trueEnd int64
	idx     int // index into the event slice
}

// Layout assigns columns to events and returns them along with the
// column count (one past the highest non-sentinel column ever opened;
// 0 if no timed events). Input order does not matter; events are not
// reordered.
//
// An event's column closes at ColumnEnd, not End: short events keep
// their slot reserved for the minimum visual span, so a neighbor
// starting right after a short event's true end still opens a new
// column instead of stacking on top of it.
func Layout(events []model.FilteredEvent, alarmMarker string) ([]model.LayoutEvent, int) {
	out := make([]model.LayoutEvent, len(events))
	edges := make([]edge, 0, 2*len(events))

	for i, ev := range events {
		out[i] = model.LayoutEvent{FilteredEvent: ev, Column: model.SentinelColumn}
		trueEnd := ev.End.UnixNano()
		edges = append(edges,
			edge{ts: ev.Start.UnixNano(), kind: edgeStart, trueEnd: trueEnd, idx: i},
			edge{ts: ev.ColumnEnd.UnixNano(), kind: edgeEnd, trueEnd: trueEnd, idx: i},
		)
	}

	// One composite comparator: timestamp, then end-before-start, then
	// later-true-end-first, then event ordinal for a total order.
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.ts != b.ts {
			return a.ts < b.ts
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.trueEnd != b.trueEnd {
			return a.trueEnd > b.trueEnd
		}
		return a.idx < b.idx
	})

	var (
		nextColumn int
		freeCols   = make(map[int]struct{})
		usage      = make(map[int]int) // times each column has been vacated
	)

	for _, e := range edges {
		ev := &out[e.idx]

		if e.kind == edgeEnd {
			if ev.Column >= 0 {
				freeCols[ev.Column] = struct{}{}
				usage[ev.Column]++
			}
			continue
		}

		// Sentinel lane: all-day events and alarm markers never consume
		// a timed column.
		if ev.AllDay || (alarmMarker != "" && strings.Contains(ev.Summary, alarmMarker)) {
			ev.Column = model.SentinelColumn
			continue
		}

		if len(freeCols) > 0 {
			col := pickFreeColumn(freeCols, usage)
			delete(freeCols, col)
			ev.Column = col
			continue
		}

		ev.Column = nextColumn
		nextColumn++
	}

	return out, nextColumn
}

// pickFreeColumn chooses the freed column with the smallest
// (usage count, column index) pair. Preferring lightly-reused columns
// is a visual-stability policy, not a correctness requirement; any
// free column would pack correctly.
func pickFreeColumn(freeCols map[int]struct{}, usage map[int]int) int {
	best := -1
	for col := range freeCols {
		if best == -1 {
			best = col
			continue
		}
		if usage[col] < usage[best] || (usage[col] == usage[best] && col < best) {
			best = col
		}
	}
	return best
}
