package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"coursecal/internal/calendar"
	appLog "coursecal/internal/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/month.html"))

// pageData feeds templates/month.html.
type pageData struct {
	Title    string
	Weekdays []string
	Weeks    [][]pageCell
	PrevURL  string
	NextURL  string
	TodayURL string

	// Disclosed is the day whose full listing is open, if any.
	Disclosed *pageDay
}

type pageCell struct {
	calendar.CellLayout
	Slots    []*calendar.PositionedEvent
	DayURL   string
	IsToday  bool
	IsMarked bool
}

type pageDay struct {
	Date   calendar.Date
	Events []calendar.PositionedEvent
}

// slots places inline events at their lane index so bars line up across a
// week row. Empty lanes stay nil.
func slots(events []calendar.PositionedEvent) []*calendar.PositionedEvent {
	out := make([]*calendar.PositionedEvent, calendar.MaxVisibleEvents)
	for i := range events {
		if l := events[i].Lane; l >= 0 && l < len(out) {
			out[l] = &events[i]
		}
	}
	return out
}

func calendarURL(d calendar.Date, courses []string, day *calendar.Date) string {
	q := url.Values{}
	q.Set("date", d.String())
	for _, c := range courses {
		q.Add("course", c)
	}
	if day != nil {
		q.Set("day", day.String())
	}
	return "/calendar?" + q.Encode()
}

// handleCalendarPage renders the month grid. ?day=YYYY-MM-DD opens the full
// listing for one day, which is where "+N" links lead.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		http.Error(w, "invalid date parameter (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	var disclosed *calendar.Date
	if raw := r.URL.Query().Get("day"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid day parameter (expected YYYY-MM-DD)", http.StatusBadRequest)
			return
		}
		disclosed = &d
	}

	courses := selectedCourses(r)
	layout := s.monthLayout(ref, courses)
	today := calendar.DateOf(s.now().In(s.cfg.Location()))

	data := pageData{
		Title:    ref.In(s.cfg.Location()).Format("January 2006"),
		Weekdays: weekdayNames(layout.WeekStart),
		PrevURL:  calendarURL(calendar.PrevMonth(ref), courses, nil),
		NextURL:  calendarURL(calendar.NextMonth(ref), courses, nil),
		TodayURL: calendarURL(today, courses, nil),
	}
	for _, week := range layout.Weeks() {
		row := make([]pageCell, 0, len(week))
		for _, c := range week {
			day := c.Date
			row = append(row, pageCell{
				CellLayout: c,
				Slots:      slots(c.Events),
				DayURL:     calendarURL(ref, courses, &day),
				IsToday:    c.Date == today,
				IsMarked:   disclosed != nil && c.Date == *disclosed,
			})
		}
		data.Weeks = append(data.Weeks, row)
	}
	if disclosed != nil {
		data.Disclosed = &pageDay{Date: *disclosed, Events: layout.Details(*disclosed)}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		appLog.Error("failed to render calendar page", err, "date", ref.String())
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
