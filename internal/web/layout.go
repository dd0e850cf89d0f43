package web

import (
	"slices"
	"strings"
	"sync"
	"time"

	"coursecal/internal/calendar"
	"coursecal/internal/model"
)

// layoutKey identifies one cached month layout. Week start is fixed per
// server so it is not part of the key.
type layoutKey struct {
	monthStart calendar.Date
	monthEnd   calendar.Date
	version    uint64
	courses    string
}

// defaultLayoutCacheSize bounds the number of cached layouts per store
// version. Keys come from request parameters, so the cache must not grow
// with the number of distinct queries.
const defaultLayoutCacheSize = 256

// layoutCache holds layouts for a single store version. Any version change,
// or reaching the size limit, drops every entry; layouts are never patched.
type layoutCache struct {
	mu      sync.Mutex
	version uint64
	limit   int
	entries map[layoutKey]calendar.MonthLayout
}

func (c *layoutCache) get(k layoutKey) (calendar.MonthLayout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != k.version {
		return calendar.MonthLayout{}, false
	}
	l, ok := c.entries[k]
	return l, ok
}

func (c *layoutCache) put(k layoutKey, l calendar.MonthLayout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	limit := c.limit
	if limit <= 0 {
		limit = defaultLayoutCacheSize
	}
	if c.version != k.version || c.entries == nil || len(c.entries) >= limit {
		c.version = k.version
		c.entries = make(map[layoutKey]calendar.MonthLayout)
	}
	c.entries[k] = l
}

func (c *layoutCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func courseKey(courses []string) string {
	sorted := slices.Clone(courses)
	slices.Sort(sorted)
	return strings.Join(slices.Compact(sorted), "\x1f")
}

// monthLayout returns the layout of ref's month for the selected courses,
// computing it from the current store snapshot on a cache miss.
func (s *Server) monthLayout(ref calendar.Date, courses []string) calendar.MonthLayout {
	snap := s.store.Snapshot()
	key := layoutKey{
		monthStart: calendar.MonthStart(ref),
		monthEnd:   calendar.MonthEnd(ref),
		version:    snap.Version,
		courses:    courseKey(courses),
	}
	if l, ok := s.layouts.get(key); ok {
		if s.metrics != nil {
			s.metrics.LayoutCacheHit()
		}
		// Cached layouts are built for the month; keep the caller's cursor.
		l.Reference = ref
		return l
	}

	started := time.Now()
	classes, exams := calendar.FilterByCourse(snap.Classes, snap.Exams, courses)
	events, dropped := calendar.Normalize(classes, exams, s.cfg.NormalizeOptions())
	layout := calendar.Build(events, ref, calendar.Options{WeekStart: s.cfg.Week()})

	if s.metrics != nil {
		var droppedClasses, droppedExams int
		for _, d := range dropped {
			switch d.Category {
			case model.CategoryClass:
				droppedClasses++
			case model.CategoryExam:
				droppedExams++
			}
		}
		s.metrics.AddDropped(string(model.CategoryClass), droppedClasses)
		s.metrics.AddDropped(string(model.CategoryExam), droppedExams)
		s.metrics.ObserveLayout(time.Since(started), len(layout.Events()), unassignedInMonth(layout))
	}

	s.layouts.put(key, layout)
	return layout
}

func unassignedInMonth(l calendar.MonthLayout) int {
	n := 0
	for _, ev := range l.Events() {
		if _, _, ok := l.Month.Clip(calendar.DateOf(ev.Start), calendar.DateOf(ev.End)); !ok {
			continue
		}
		if l.Assignment.Lane(ev.ID) < 0 {
			n++
		}
	}
	return n
}
