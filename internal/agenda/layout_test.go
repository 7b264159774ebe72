package agenda_test

import (
	"testing"
	"time"

	"wristcal/internal/agenda"
	"wristcal/internal/model"
)

const testAlarmMarker = "[ALARM]"

// at builds a time on 2024-01-15 UTC.
func at(hour, min int) time.Time {
	return time.Date(2024, 1, 15, hour, min, 0, 0, time.UTC)
}

func timed(summary string, start, end time.Time) model.FilteredEvent {
	columnEnd := end
	if min := start.Add(30 * time.Minute); columnEnd.Before(min) {
		columnEnd = min
	}
	return model.FilteredEvent{
		Summary:   summary,
		Start:     start,
		End:       end,
		ColumnEnd: columnEnd,
	}
}

func allDay(summary string, day time.Time) model.FilteredEvent {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)
	return model.FilteredEvent{
		Summary:   summary,
		AllDay:    true,
		Start:     start,
		End:       end,
		ColumnEnd: end,
	}
}

func columnOf(t *testing.T, events []model.LayoutEvent, summary string) int {
	t.Helper()
	for _, ev := range events {
		if ev.Summary == summary {
			return ev.Column
		}
	}
	t.Fatalf("event %q not in layout result", summary)
	return 0
}

// assertNoCollisions checks the core packing invariant: any two events
// with overlapping [start, columnEnd) ranges hold distinct non-negative
// columns.
func assertNoCollisions(t *testing.T, events []model.LayoutEvent) {
	t.Helper()
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			if a.Column < 0 || b.Column < 0 {
				continue
			}
			overlap := a.Start.Before(b.ColumnEnd) && b.Start.Before(a.ColumnEnd)
			if overlap && a.Column == b.Column {
				t.Errorf("%q and %q overlap but share column %d", a.Summary, b.Summary, a.Column)
			}
		}
	}
}

func TestLayout(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		events, columns := agenda.Layout(nil, testAlarmMarker)
		if len(events) != 0 || columns != 0 {
			t.Errorf("got %d events, %d columns; want 0, 0", len(events), columns)
		}
	})

	t.Run("standup review planning", func(t *testing.T) {
		// Standup's column frees at 09:30; Review holds its column until
		// 10:00, so Planning at 09:45 reuses column 0.
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("Standup", at(9, 0), at(9, 30)),
			timed("Review", at(9, 15), at(10, 0)),
			timed("Planning", at(9, 45), at(11, 0)),
		}, testAlarmMarker)

		if columns != 2 {
			t.Errorf("columns = %d, want 2", columns)
		}
		if got := columnOf(t, events, "Standup"); got != 0 {
			t.Errorf("Standup column = %d, want 0", got)
		}
		if got := columnOf(t, events, "Review"); got != 1 {
			t.Errorf("Review column = %d, want 1", got)
		}
		if got := columnOf(t, events, "Planning"); got != 0 {
			t.Errorf("Planning column = %d, want 0", got)
		}
		assertNoCollisions(t, events)
	})

	t.Run("identical events get distinct columns", func(t *testing.T) {
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("A", at(9, 0), at(10, 0)),
			timed("B", at(9, 0), at(10, 0)),
		}, testAlarmMarker)
		if columns != 2 {
			t.Errorf("columns = %d, want 2", columns)
		}
		if columnOf(t, events, "A") == columnOf(t, events, "B") {
			t.Error("identical events must not share a column")
		}
	})

	t.Run("short event reserves its padded span", func(t *testing.T) {
		// Quick ends at 09:10 but its column stays reserved until 09:30,
		// so Next at 09:15 must open a second column.
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("Quick", at(9, 0), at(9, 10)),
			timed("Next", at(9, 15), at(10, 0)),
		}, testAlarmMarker)
		if columns != 2 {
			t.Errorf("columns = %d, want 2", columns)
		}
		assertNoCollisions(t, events)
	})

	t.Run("back to back events share a column", func(t *testing.T) {
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("First", at(9, 0), at(10, 0)),
			timed("Second", at(10, 0), at(11, 0)),
		}, testAlarmMarker)
		if columns != 1 {
			t.Errorf("columns = %d, want 1", columns)
		}
		if columnOf(t, events, "First") != columnOf(t, events, "Second") {
			t.Error("non-overlapping events should reuse the column")
		}
	})

	t.Run("longer simultaneous start claims the lower column", func(t *testing.T) {
		events, _ := agenda.Layout([]model.FilteredEvent{
			timed("Short", at(9, 0), at(10, 0)),
			timed("Long", at(9, 0), at(12, 0)),
		}, testAlarmMarker)
		if got := columnOf(t, events, "Long"); got != 0 {
			t.Errorf("Long column = %d, want 0", got)
		}
		if got := columnOf(t, events, "Short"); got != 1 {
			t.Errorf("Short column = %d, want 1", got)
		}
	})

	t.Run("all-day events take the sentinel and no lane", func(t *testing.T) {
		events, columns := agenda.Layout([]model.FilteredEvent{
			allDay("Holiday", at(0, 0)),
			timed("Lunch", at(12, 0), at(13, 0)),
		}, testAlarmMarker)
		if columns != 1 {
			t.Errorf("columns = %d, want 1", columns)
		}
		if got := columnOf(t, events, "Holiday"); got != model.SentinelColumn {
			t.Errorf("Holiday column = %d, want %d", got, model.SentinelColumn)
		}
		if got := columnOf(t, events, "Lunch"); got != 0 {
			t.Errorf("Lunch column = %d, want 0", got)
		}
	})

	t.Run("alarm-marked events take the sentinel", func(t *testing.T) {
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("Wake up [ALARM]", at(7, 0), at(7, 30)),
			timed("Breakfast", at(7, 0), at(7, 30)),
		}, testAlarmMarker)
		if columns != 1 {
			t.Errorf("columns = %d, want 1", columns)
		}
		if got := columnOf(t, events, "Wake up [ALARM]"); got != model.SentinelColumn {
			t.Errorf("alarm column = %d, want %d", got, model.SentinelColumn)
		}
	})

	t.Run("column count is one past the highest index", func(t *testing.T) {
		events, columns := agenda.Layout([]model.FilteredEvent{
			timed("A", at(9, 0), at(11, 0)),
			timed("B", at(9, 0), at(11, 0)),
			timed("C", at(9, 0), at(11, 0)),
			timed("D", at(11, 30), at(12, 0)),
		}, testAlarmMarker)
		if columns != 3 {
			t.Errorf("columns = %d, want 3", columns)
		}
		max := -1
		for _, ev := range events {
			if ev.Column > max {
				max = ev.Column
			}
		}
		if columns != max+1 {
			t.Errorf("columns = %d, want max index + 1 = %d", columns, max+1)
		}
		assertNoCollisions(t, events)
	})

	t.Run("dense schedule never collides", func(t *testing.T) {
		var input []model.FilteredEvent
		for i := 0; i < 12; i++ {
			start := at(8, 0).Add(time.Duration(i*20) * time.Minute)
			end := start.Add(time.Duration(15+10*i) * time.Minute)
			input = append(input, timed(string(rune('A'+i)), start, end))
		}
		events, _ := agenda.Layout(input, testAlarmMarker)
		assertNoCollisions(t, events)
	})
}
