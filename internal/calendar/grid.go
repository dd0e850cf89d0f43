package calendar

import (
	"fmt"
	"strings"
	"time"
)

// WeekStart selects the first column of the month grid.
type WeekStart time.Weekday

const (
	WeekStartSunday = WeekStart(time.Sunday)
	WeekStartMonday = WeekStart(time.Monday)
)

// ParseWeekStart accepts "sunday" or "monday" (case-insensitive).
func ParseWeekStart(s string) (WeekStart, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday":
		return WeekStartSunday, nil
	case "monday":
		return WeekStartMonday, nil
	default:
		return WeekStartMonday, fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
	}
}

func (w WeekStart) String() string {
	return strings.ToLower(time.Weekday(w).String())
}

// Weekdays returns the seven column weekdays in display order.
func (w WeekStart) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = time.Weekday((int(w) + i) % 7)
	}
	return out
}

// DayCell is one square of the month grid.
type DayCell struct {
	Date             Date `json:"date"`
	DayOfMonth       int  `json:"day_of_month"`
	InDisplayedMonth bool `json:"in_displayed_month"`
}

// MonthStart returns the first day of ref's month.
func MonthStart(ref Date) Date {
	return Date{Year: ref.Year, Month: ref.Month, Day: 1}
}

// MonthEnd returns the last day of ref's month.
func MonthEnd(ref Date) Date {
	return NewDate(ref.Year, ref.Month+1, 0)
}

// MonthWindow is the displayed month [first day, last day].
func MonthWindow(ref Date) Window {
	return Window{From: MonthStart(ref), To: MonthEnd(ref)}
}

// NextMonth returns the first day of the month after ref.
func NextMonth(ref Date) Date {
	return NewDate(ref.Year, ref.Month+1, 1)
}

// PrevMonth returns the first day of the month before ref.
func PrevMonth(ref Date) Date {
	return NewDate(ref.Year, ref.Month-1, 1)
}

// GridWindow returns the span of days rendered for ref's month: from the
// start of the week containing day 1 to the end of the week containing the
// last day.
func GridWindow(ref Date, ws WeekStart) Window {
	first := MonthStart(ref)
	last := MonthEnd(ref)
	lead := (int(first.Weekday()) - int(ws) + 7) % 7
	trail := (int(ws) + 6 - int(last.Weekday()) + 7) % 7
	return Window{From: first.AddDays(-lead), To: last.AddDays(trail)}
}

// BuildGrid returns the ordered day cells for ref's month. The result length
// is always a multiple of 7.
func BuildGrid(ref Date, ws WeekStart) []DayCell {
	w := GridWindow(ref, ws)
	days := w.Days()
	cells := make([]DayCell, 0, len(days))
	for _, d := range days {
		cells = append(cells, DayCell{
			Date:             d,
			DayOfMonth:       d.Day,
			InDisplayedMonth: d.Year == ref.Year && d.Month == ref.Month,
		})
	}
	return cells
}
