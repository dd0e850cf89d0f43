package calendar

import (
	"fmt"
	"time"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// NormalizeOptions controls how source records become events.
type NormalizeOptions struct {
	// Location is the wall-clock zone of the calendar. If nil, time.Local.
	Location *time.Location

	// EditionStart / EditionEnd are the fallback class hours used when a
	// session has neither its own edition times nor a recorded start.
	// Zero values mean 08:00 and 10:00.
	EditionStart *Clock
	EditionEnd   *Clock
}

// Dropped describes a source record that could not be normalized.
type Dropped struct {
	ID       string
	Category model.Category
	Err      error
}

// Normalize converts class sessions and exam windows into one flat list of
// events, classes first, each group in input order. Records whose instants
// cannot be derived are skipped and reported in the second return value;
// they never abort the batch.
func Normalize(classes []model.ClassSession, exams []model.ExamWindow, opts NormalizeOptions) ([]model.Event, []Dropped) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	defStart := DefaultEditionStart
	if opts.EditionStart != nil {
		defStart = *opts.EditionStart
	}
	defEnd := DefaultEditionEnd
	if opts.EditionEnd != nil {
		defEnd = *opts.EditionEnd
	}

	events := make([]model.Event, 0, len(classes)+len(exams))
	var dropped []Dropped

	for _, c := range classes {
		ev, err := normalizeClass(c, loc, defStart, defEnd)
		if err != nil {
			dropped = append(dropped, Dropped{ID: c.ID, Category: model.CategoryClass, Err: err})
			appLog.Warn("calendar: dropping class session", "id", c.ID, "category", model.CategoryClass, "reason", err)
			continue
		}
		events = append(events, ev)
	}

	for _, x := range exams {
		ev, err := normalizeExam(x, loc)
		if err != nil {
			dropped = append(dropped, Dropped{ID: x.ID, Category: model.CategoryExam, Err: err})
			appLog.Warn("calendar: dropping exam window", "id", x.ID, "category", model.CategoryExam, "reason", err)
			continue
		}
		events = append(events, ev)
	}

	return events, dropped
}

func normalizeClass(c model.ClassSession, loc *time.Location, defStart, defEnd Clock) (model.Event, error) {
	var day Date
	switch {
	case !c.OccurrenceDate.IsZero():
		day = DateOf(c.OccurrenceDate)
	case !c.RecordedStart.IsZero():
		day = DateOf(c.RecordedStart.In(loc))
	default:
		return model.Event{}, ErrMissingStart
	}

	var start time.Time
	if clk, ok := parseOptionalClock(c.EditionStartTime); ok {
		start = clk.On(day, loc)
	} else if !c.RecordedStart.IsZero() {
		start = c.RecordedStart.In(loc)
	} else if hasTimeOfDay(c.OccurrenceDate) {
		start = wallClock(c.OccurrenceDate, loc)
	} else {
		start = defStart.On(day, loc)
	}

	var end time.Time
	if c.DurationMinutes > 0 {
		end = start.Add(time.Duration(c.DurationMinutes) * time.Minute)
	} else if clk, ok := parseOptionalClock(c.EditionEndTime); ok {
		end = clk.On(day, loc)
	} else {
		end = defEnd.On(day, loc)
		// A start later than the default end keeps the default length.
		if span := end.Sub(defStart.On(day, loc)); end.Before(start) && span > 0 {
			end = start.Add(span)
		}
	}

	if end.Before(start) {
		return model.Event{}, fmt.Errorf("%w: %s > %s", ErrEndBeforeStart, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return model.Event{
		ID:          c.ID,
		CourseTitle: c.CourseTitle,
		Title:       c.Title,
		Description: c.Description,
		Start:       start,
		End:         end,
		ColorHint:   c.Color,
		Detail:      model.ClassDetail{DurationMinutes: c.DurationMinutes},
	}, nil
}

func normalizeExam(x model.ExamWindow, loc *time.Location) (model.Event, error) {
	if x.AvailableFrom.IsZero() {
		return model.Event{}, ErrMissingStart
	}
	if x.DueBy.IsZero() {
		return model.Event{}, ErrMissingEnd
	}
	start := x.AvailableFrom.In(loc)
	end := x.DueBy.In(loc)
	if end.Before(start) {
		return model.Event{}, fmt.Errorf("%w: %s > %s", ErrEndBeforeStart, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return model.Event{
		ID:          x.ID,
		CourseTitle: x.CourseTitle,
		Title:       x.Title,
		Description: x.Description,
		Start:       start,
		End:         end,
		ColorHint:   x.Color,
		Detail:      model.ExamDetail{MinScore: x.MinScore, MaxScore: x.MaxScore},
	}, nil
}

// parseOptionalClock returns ok=false for empty or malformed values. A
// malformed edition time falls through to the next source instead of
// dropping the record.
func parseOptionalClock(s string) (Clock, bool) {
	if s == "" {
		return Clock{}, false
	}
	clk, err := ParseClock(s)
	if err != nil {
		appLog.Debug("calendar: ignoring malformed edition time", "value", s)
		return Clock{}, false
	}
	return clk, true
}

func hasTimeOfDay(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}

// wallClock keeps t's wall-clock reading but places it in loc.
func wallClock(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}
