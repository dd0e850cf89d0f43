package calendar

import (
	"cmp"
	"slices"

	"coursecal/internal/model"
)

// MaxVisibleEvents is the number of lanes rendered inline in a day cell.
const MaxVisibleEvents = 3

// LaneAssignment maps event id to lane index. Events that did not fit in
// any lane are absent.
type LaneAssignment map[string]int

// Lane returns the lane of id, or -1 when the event has none.
func (a LaneAssignment) Lane(id string) int {
	if l, ok := a[id]; ok {
		return l
	}
	return -1
}

// laneCandidate is an event clipped to the allocation window.
type laneCandidate struct {
	ev       model.Event
	from, to Date
	days     int
}

// AllocateLanes assigns lanes for the month containing ref.
func AllocateLanes(events []model.Event, ref Date) LaneAssignment {
	return AllocateLanesIn(events, MonthWindow(ref))
}

// AllocateLanesIn assigns each event a lane in [0, MaxVisibleEvents) so that
// no two events sharing a day share a lane. Longer clipped spans are placed
// first, ties broken by earlier start, then by input order. Each event takes
// the lowest lane free on every day of its clipped span; events with no such
// lane are left out of the result.
func AllocateLanesIn(events []model.Event, w Window) LaneAssignment {
	candidates := make([]laneCandidate, 0, len(events))
	for _, ev := range events {
		from, to, ok := w.Clip(DateOf(ev.Start), DateOf(ev.End))
		if !ok {
			continue
		}
		candidates = append(candidates, laneCandidate{
			ev:   ev,
			from: from,
			to:   to,
			days: DaysBetween(from, to) + 1,
		})
	}

	slices.SortStableFunc(candidates, func(a, b laneCandidate) int {
		if c := cmp.Compare(b.days, a.days); c != 0 {
			return c
		}
		return a.ev.Start.Compare(b.ev.Start)
	})

	occupied := make(map[Date]*[MaxVisibleEvents]bool, DaysBetween(w.From, w.To)+1)
	slot := func(d Date) *[MaxVisibleEvents]bool {
		s, ok := occupied[d]
		if !ok {
			s = new([MaxVisibleEvents]bool)
			occupied[d] = s
		}
		return s
	}

	assignment := make(LaneAssignment, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		// First occurrence of an id wins.
		if _, dup := seen[c.ev.ID]; dup {
			continue
		}
		seen[c.ev.ID] = struct{}{}
		for lane := 0; lane < MaxVisibleEvents; lane++ {
			if !laneFree(occupied, c.from, c.to, lane) {
				continue
			}
			for d := c.from; !d.After(c.to); d = d.AddDays(1) {
				slot(d)[lane] = true
			}
			assignment[c.ev.ID] = lane
			break
		}
	}
	return assignment
}

func laneFree(occupied map[Date]*[MaxVisibleEvents]bool, from, to Date, lane int) bool {
	for d := from; !d.After(to); d = d.AddDays(1) {
		if s, ok := occupied[d]; ok && s[lane] {
			return false
		}
	}
	return true
}
