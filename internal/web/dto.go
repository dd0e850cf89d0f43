package web

import (
	"time"

	"coursecal/internal/calendar"
	"coursecal/internal/model"
)

// monthResponse is the JSON response shape for /api/month.
type monthResponse struct {
	Reference  calendar.Date `json:"reference"`
	MonthStart calendar.Date `json:"month_start"`
	MonthEnd   calendar.Date `json:"month_end"`
	Prev       calendar.Date `json:"prev"`
	Next       calendar.Date `json:"next"`
	WeekStart  string        `json:"week_start"`
	Weekdays   []string      `json:"weekdays"`
	MaxVisible int           `json:"max_visible"`
	Courses    []string      `json:"courses"`
	Selected   []string      `json:"selected,omitempty"`
	Cells      []cellDTO     `json:"cells"`
}

type cellDTO struct {
	Date             calendar.Date   `json:"date"`
	DayOfMonth       int             `json:"day_of_month"`
	InDisplayedMonth bool            `json:"in_displayed_month"`
	Events           []positionedDTO `json:"events"`
	HiddenCount      int             `json:"hidden_count"`
	UnplacedCount    int             `json:"unplaced_count"`
}

// dayResponse is the JSON response shape for /api/day.
type dayResponse struct {
	Date        calendar.Date   `json:"date"`
	HiddenCount int             `json:"hidden_count"`
	Events      []positionedDTO `json:"events"`
}

type positionedDTO struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Course      string    `json:"course,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Color       string    `json:"color"`
	Lane        int       `json:"lane"`
	MultiDay    bool      `json:"multi_day"`
	RangeStart  bool      `json:"range_start,omitempty"`
	RangeMiddle bool      `json:"range_middle,omitempty"`
	RangeEnd    bool      `json:"range_end,omitempty"`

	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Scores          *scoreDTO `json:"scores,omitempty"`
}

type scoreDTO struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func toPositionedDTO(p calendar.PositionedEvent) positionedDTO {
	ev := p.Event
	out := positionedDTO{
		ID:          ev.ID,
		Category:    string(ev.Category()),
		Course:      ev.CourseTitle,
		Title:       ev.Title,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		Color:       string(ev.Color()),
		Lane:        p.Lane,
		MultiDay:    p.IsMultiDay,
		RangeStart:  p.IsRangeStart,
		RangeMiddle: p.IsRangeMiddle,
		RangeEnd:    p.IsRangeEnd,
	}
	switch d := ev.Detail.(type) {
	case model.ClassDetail:
		out.DurationMinutes = d.DurationMinutes
	case model.ExamDetail:
		out.Scores = &scoreDTO{Min: d.MinScore, Max: d.MaxScore}
	}
	return out
}

func toPositionedDTOs(ps []calendar.PositionedEvent) []positionedDTO {
	out := make([]positionedDTO, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPositionedDTO(p))
	}
	return out
}

func weekdayNames(ws calendar.WeekStart) []string {
	days := ws.Weekdays()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()[:3]
	}
	return out
}
