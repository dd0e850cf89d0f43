package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"coursecal/internal/model"
)

const productID = "-//coursecal//month view//EN"

// Export serializes normalized events as a VCALENDAR. Exams keep their
// score bounds in X-MIN-SCORE / X-MAX-SCORE so the export reads back through
// ParseICS.
func Export(name string, events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
	}

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.CourseTitle != "" {
			ve.SetProperty(propCourse, ev.CourseTitle)
		}
		ve.SetProperty(propColor, string(ev.Color()))

		switch d := ev.Detail.(type) {
		case model.ExamDetail:
			ve.SetProperty(ical.ComponentPropertyCategories, string(model.CategoryExam))
			ve.SetProperty(propMinScore, strconv.Itoa(d.MinScore))
			ve.SetProperty(propMaxScore, strconv.Itoa(d.MaxScore))
		case model.ClassDetail:
			ve.SetProperty(ical.ComponentPropertyCategories, string(model.CategoryClass))
		}
	}
	return cal.Serialize()
}
