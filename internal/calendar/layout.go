// Package calendar lays out class and exam events on a month grid.
//
// Everything here is a pure function of its inputs: the grid, lane
// assignment and per-cell views are rebuilt from scratch for each
// (events, reference date) pair and hold no shared state.
package calendar

import "coursecal/internal/model"

// Options tune Build.
type Options struct {
	WeekStart WeekStart
}

// CellLayout is one grid cell with its inline events and overflow count.
type CellLayout struct {
	DayCell

	// Events are the inline events (lane >= 0) in display order.
	Events []PositionedEvent

	// HiddenCount is how many touching events exceed the inline capacity.
	// Zero means no disclosure control is shown.
	HiddenCount int

	// Total is the number of events touching this day.
	Total int

	// Unplaced is how many touching events have no bar in this cell. It can
	// exceed HiddenCount when an event lost its lane on another day of its
	// span while this day has free lanes.
	Unplaced int
}

// HasDisclosure reports whether the cell needs a "+N" control, that is
// whether any touching event is not drawn inline.
func (c CellLayout) HasDisclosure() bool {
	return c.Unplaced > 0
}

// MonthLayout is the complete month view for one reference date.
type MonthLayout struct {
	Reference  Date
	WeekStart  WeekStart
	Month      Window
	Grid       Window
	Cells      []CellLayout
	Assignment LaneAssignment

	events []model.Event
}

// Build lays out normalized events for the month containing ref. Lanes are
// allocated over the displayed month; lead and trail days reuse them.
func Build(events []model.Event, ref Date, opts Options) MonthLayout {
	month := MonthWindow(ref)
	grid := GridWindow(ref, opts.WeekStart)

	// Keep only what can appear on the grid; the allocator clips to the
	// month itself.
	visible := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if _, _, ok := grid.Clip(DateOf(ev.Start), DateOf(ev.End)); ok {
			visible = append(visible, ev)
		}
	}

	assignment := AllocateLanesIn(visible, month)
	cells := BuildGrid(ref, opts.WeekStart)

	out := MonthLayout{
		Reference:  ref,
		WeekStart:  opts.WeekStart,
		Month:      month,
		Grid:       grid,
		Cells:      make([]CellLayout, 0, len(cells)),
		Assignment: assignment,
		events:     visible,
	}
	for _, cell := range cells {
		touching := ResolveDay(cell.Date, visible, assignment, grid)
		inline := InlineEvents(touching)
		out.Cells = append(out.Cells, CellLayout{
			DayCell:     cell,
			Events:      inline,
			HiddenCount: HiddenCount(len(touching)),
			Total:       len(touching),
			Unplaced:    len(touching) - len(inline),
		})
	}
	return out
}

// Details lists every event touching d, inline or overflowed, in cell order.
// Dates off the grid yield nothing.
func (m MonthLayout) Details(d Date) []PositionedEvent {
	return ResolveDay(d, m.events, m.Assignment, m.Grid)
}

// Cell returns the cell for d, if d is on the grid.
func (m MonthLayout) Cell(d Date) (CellLayout, bool) {
	if !m.Grid.Contains(d) {
		return CellLayout{}, false
	}
	return m.Cells[DaysBetween(m.Grid.From, d)], true
}

// Weeks splits the cells into rows of seven.
func (m MonthLayout) Weeks() [][]CellLayout {
	rows := make([][]CellLayout, 0, len(m.Cells)/7)
	for i := 0; i+7 <= len(m.Cells); i += 7 {
		rows = append(rows, m.Cells[i:i+7])
	}
	return rows
}

// Events returns the events considered for this layout.
func (m MonthLayout) Events() []model.Event {
	return m.events
}
