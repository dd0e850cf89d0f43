package ics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "coursecal/internal/log"
	"coursecal/internal/model"
)

// Extra VEVENT properties understood by the feed reader.
const (
	propMinScore = ical.ComponentProperty("X-MIN-SCORE")
	propMaxScore = ical.ComponentProperty("X-MAX-SCORE")
	propColor    = ical.ComponentProperty("COLOR")
	propCourse   = ical.ComponentProperty("X-COURSE")

	propRecurrenceID = ical.ComponentProperty("RECURRENCE-ID")
)

// ParsedEvent is one VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID         string
	Summary     string
	Description string
	Course      string
	Color       model.Color

	Start  time.Time
	End    time.Time
	AllDay bool

	MinScore int
	MaxScore int

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
}

// IsOverride reports whether the event replaces one instance of a series.
func (p ParsedEvent) IsOverride() bool {
	return p.Recurrence != nil
}

// ParseICS parses a feed body. Malformed VEVENTs are logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, fmt.Errorf("ics: parse %s: %w", src.ID, err)
	}

	var events []ParsedEvent
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(src, ve)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "url", redactURL(src.URL), "reason", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	out.UID = propValue(ve, ical.ComponentPropertyUniqueId)
	if out.UID == "" {
		return out, ErrMissingUID
	}
	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Color = model.ParseColor(strings.ToLower(propValue(ve, propColor)))
	out.MinScore = propInt(ve, propMinScore)
	out.MaxScore = propInt(ve, propMaxScore)

	// Course: feed override, then X-COURSE, then first CATEGORIES entry.
	switch {
	case src.Course != "":
		out.Course = src.Course
	case propValue(ve, propCourse) != "":
		out.Course = propValue(ve, propCourse)
	default:
		if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
			out.Course = strings.TrimSpace(strings.Split(cats, ",")[0])
		}
	}

	start, serr := ve.GetStartAt()
	if serr != nil {
		return out, fmt.Errorf("uid %s: DTSTART: %w", out.UID, serr)
	}
	out.Start = start
	if end, eerr := ve.GetEndAt(); eerr == nil {
		out.End = end
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		// VALUE=DATE or a value without a time part means all-day.
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	out.RawRRule = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(propRecurrenceID); p != nil {
		if t, err := parseICSTime(p.Value); err == nil {
			out.Recurrence = &t
		}
	}

	return out, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func propInt(ve *ical.VEvent, name ical.ComponentProperty) int {
	n, err := strconv.Atoi(propValue(ve, name))
	if err != nil {
		return 0
	}
	return n
}

// parseICSTime parses bare DATE / DATE-TIME / UTC values used by EXDATE and
// RECURRENCE-ID. Floating values are read in time.Local.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, fmt.Errorf("ics: empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
