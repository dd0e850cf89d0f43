package calendar

import (
	"cmp"
	"slices"

	"coursecal/internal/model"
)

// PositionedEvent is an event as it appears in one day cell.
type PositionedEvent struct {
	Event model.Event
	// Lane is -1 for events that did not get a lane.
	Lane int

	IsMultiDay    bool
	IsRangeStart  bool
	IsRangeMiddle bool
	IsRangeEnd    bool
}

// Inline reports whether the event is drawn in the cell rather than only
// listed in the overflow detail.
func (p PositionedEvent) Inline() bool {
	return p.Lane >= 0
}

// Touches reports whether ev covers date d. Both ends are inclusive at day
// granularity, so an event ending exactly at midnight still touches that day.
func Touches(ev model.Event, d Date) bool {
	return !d.Before(DateOf(ev.Start)) && !d.After(DateOf(ev.End))
}

// ResolveDay returns every event touching d with its lane and segment flags.
// visible bounds the segment flags: a multi-day event cut by the edge of the
// visible range starts or ends at that edge.
func ResolveDay(d Date, events []model.Event, assignment LaneAssignment, visible Window) []PositionedEvent {
	var out []PositionedEvent
	for _, ev := range events {
		if !Touches(ev, d) {
			continue
		}
		out = append(out, position(ev, d, assignment.Lane(ev.ID), visible))
	}
	SortPositioned(out)
	return out
}

func position(ev model.Event, d Date, lane int, visible Window) PositionedEvent {
	startDay, endDay := DateOf(ev.Start), DateOf(ev.End)
	p := PositionedEvent{
		Event:      ev,
		Lane:       lane,
		IsMultiDay: startDay != endDay,
	}
	if !p.IsMultiDay {
		return p
	}
	from, to, ok := visible.Clip(startDay, endDay)
	if !ok {
		// d is outside the visible range; fall back to the absolute span.
		from, to = startDay, endDay
	}
	p.IsRangeStart = d == from
	p.IsRangeEnd = d == to
	p.IsRangeMiddle = !p.IsRangeStart && !p.IsRangeEnd
	return p
}

// SortPositioned orders a cell's events: multi-day first, then by lane with
// unassigned events last, then by start, then by id.
func SortPositioned(ps []PositionedEvent) {
	slices.SortStableFunc(ps, comparePositioned)
}

func comparePositioned(a, b PositionedEvent) int {
	if a.IsMultiDay != b.IsMultiDay {
		if a.IsMultiDay {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(laneRank(a.Lane), laneRank(b.Lane)); c != 0 {
		return c
	}
	if c := a.Event.Start.Compare(b.Event.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Event.ID, b.Event.ID)
}

func laneRank(lane int) int {
	if lane < 0 {
		return MaxVisibleEvents
	}
	return lane
}
