package ics

import (
	"time"

	"coursecal/internal/model"
)

// Records maps expanded instances to source records according to each
// instance's feed kind.
func Records(instances []Instance) ([]model.ClassSession, []model.ExamWindow) {
	var (
		classes []model.ClassSession
		exams   []model.ExamWindow
	)
	for _, in := range instances {
		switch in.Event.Source.Kind {
		case model.CategoryExam:
			exams = append(exams, examFromInstance(in))
		default:
			classes = append(classes, classFromInstance(in))
		}
	}
	return classes, exams
}

func instanceID(in Instance) string {
	if in.Key == "" {
		return in.Event.UID
	}
	return in.Event.UID + "@" + in.Key
}

func classFromInstance(in Instance) model.ClassSession {
	day := time.Date(in.Start.Year(), in.Start.Month(), in.Start.Day(), 0, 0, 0, 0, in.Start.Location())
	c := model.ClassSession{
		ID:             instanceID(in),
		CourseTitle:    in.Event.Course,
		Title:          in.Event.Summary,
		Description:    in.Event.Description,
		OccurrenceDate: day,
		Color:          in.Event.Color,
	}
	if in.Event.AllDay {
		// No time of day; the normalizer applies edition hours.
		return c
	}
	c.RecordedStart = in.Start
	if d := in.End.Sub(in.Start); d > 0 {
		c.DurationMinutes = int(d / time.Minute)
	}
	return c
}

func examFromInstance(in Instance) model.ExamWindow {
	x := model.ExamWindow{
		ID:            instanceID(in),
		CourseTitle:   in.Event.Course,
		Title:         in.Event.Summary,
		Description:   in.Event.Description,
		AvailableFrom: in.Start,
		DueBy:         in.End,
		MinScore:      in.Event.MinScore,
		MaxScore:      in.Event.MaxScore,
		Color:         in.Event.Color,
	}
	// All-day DTEND is exclusive; pull it back into the last covered day.
	if in.Event.AllDay && in.End.After(in.Start) {
		x.DueBy = in.End.Add(-time.Second)
	}
	return x
}
