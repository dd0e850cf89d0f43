package calendar_test

import (
	"errors"
	"testing"
	"time"

	"coursecal/internal/calendar"
	"coursecal/internal/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	convey.Convey("Given class sessions with different time sources", t, func() {
		day := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
		classes := []model.ClassSession{
			{ID: "edition", OccurrenceDate: day, EditionStartTime: "14:30", DurationMinutes: 90},
			{ID: "recorded", OccurrenceDate: day, RecordedStart: day.Add(9 * time.Hour), EditionEndTime: "12:00"},
			{ID: "defaults", OccurrenceDate: day},
			{ID: "timed-date", OccurrenceDate: day.Add(16 * time.Hour), DurationMinutes: 30},
			{ID: "bad-edition", OccurrenceDate: day, EditionStartTime: "25:99"},
			{ID: "no-date"},
			{ID: "inverted", OccurrenceDate: day, EditionStartTime: "11:00", EditionEndTime: "09:00"},
			{ID: "afternoon", OccurrenceDate: day, RecordedStart: day.Add(14 * time.Hour)},
		}

		convey.Convey("When they are normalized in UTC", func() {
			events, dropped := calendar.Normalize(classes, nil, calendar.NormalizeOptions{Location: time.UTC})
			byID := map[string]model.Event{}
			for _, ev := range events {
				byID[ev.ID] = ev
			}

			convey.Convey("Then the edition start wins and duration sets the end", func() {
				ev := byID["edition"]
				convey.So(ev.Start, convey.ShouldEqual, day.Add(14*time.Hour+30*time.Minute))
				convey.So(ev.End, convey.ShouldEqual, day.Add(16*time.Hour))
				convey.So(ev.Category(), convey.ShouldEqual, model.CategoryClass)
				convey.So(ev.Color(), convey.ShouldEqual, model.ColorBlue)
			})

			convey.Convey("Then a recorded start is used when no edition start exists", func() {
				ev := byID["recorded"]
				convey.So(ev.Start, convey.ShouldEqual, day.Add(9*time.Hour))
				convey.So(ev.End, convey.ShouldEqual, day.Add(12*time.Hour))
			})

			convey.Convey("Then missing times fall back to 08:00-10:00", func() {
				ev := byID["defaults"]
				convey.So(ev.Start, convey.ShouldEqual, day.Add(8*time.Hour))
				convey.So(ev.End, convey.ShouldEqual, day.Add(10*time.Hour))

				bad := byID["bad-edition"]
				convey.So(bad.Start, convey.ShouldEqual, day.Add(8*time.Hour))
			})

			convey.Convey("Then a start after the default end keeps the default length", func() {
				ev, ok := byID["afternoon"]
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(ev.Start, convey.ShouldEqual, day.Add(14*time.Hour))
				convey.So(ev.End, convey.ShouldEqual, day.Add(16*time.Hour))
			})

			convey.Convey("Then a time of day on the occurrence date counts as recorded", func() {
				ev := byID["timed-date"]
				convey.So(ev.Start, convey.ShouldEqual, day.Add(16*time.Hour))
				convey.So(ev.End, convey.ShouldEqual, day.Add(16*time.Hour+30*time.Minute))
			})

			convey.Convey("Then invalid records are dropped without failing the batch", func() {
				convey.So(len(events), convey.ShouldEqual, 6)
				convey.So(len(dropped), convey.ShouldEqual, 2)
				convey.So(dropped[0].ID, convey.ShouldEqual, "no-date")
				convey.So(errors.Is(dropped[0].Err, calendar.ErrMissingStart), convey.ShouldBeTrue)
				convey.So(dropped[1].ID, convey.ShouldEqual, "inverted")
				convey.So(errors.Is(dropped[1].Err, calendar.ErrEndBeforeStart), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When custom edition defaults are configured", func() {
			start := calendar.Clock{Hour: 18}
			end := calendar.Clock{Hour: 20, Minute: 15}
			events, _ := calendar.Normalize(classes[2:3], nil, calendar.NormalizeOptions{
				Location:     time.UTC,
				EditionStart: &start,
				EditionEnd:   &end,
			})

			convey.Convey("Then they replace 08:00-10:00", func() {
				convey.So(events[0].Start, convey.ShouldEqual, day.Add(18*time.Hour))
				convey.So(events[0].End, convey.ShouldEqual, day.Add(20*time.Hour+15*time.Minute))
			})
		})
	})

	convey.Convey("Given exam windows", t, func() {
		from := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
		exams := []model.ExamWindow{
			{ID: "x1", AvailableFrom: from, DueBy: from.Add(50 * time.Hour), MinScore: 18, MaxScore: 30},
			{ID: "x2", AvailableFrom: from, Color: model.ColorBlue},
			{ID: "x3", DueBy: from},
			{ID: "x4", AvailableFrom: from, DueBy: from.Add(-time.Hour)},
			{ID: "x5", AvailableFrom: from, DueBy: from, Color: model.ColorBlue},
		}

		convey.Convey("When they are normalized", func() {
			events, dropped := calendar.Normalize(nil, exams, calendar.NormalizeOptions{Location: time.UTC})

			convey.Convey("Then instants are kept verbatim and scores carried", func() {
				convey.So(len(events), convey.ShouldEqual, 2)
				convey.So(events[0].Start, convey.ShouldEqual, from)
				convey.So(events[0].End, convey.ShouldEqual, from.Add(50*time.Hour))
				convey.So(events[0].Detail, convey.ShouldResemble, model.ExamDetail{MinScore: 18, MaxScore: 30})
				convey.So(events[0].Color(), convey.ShouldEqual, model.ColorRed)
				convey.So(events[1].Color(), convey.ShouldEqual, model.ColorBlue)
			})

			convey.Convey("Then windows without both ends or inverted are dropped", func() {
				convey.So(len(dropped), convey.ShouldEqual, 3)
				convey.So(errors.Is(dropped[0].Err, calendar.ErrMissingEnd), convey.ShouldBeTrue)
				convey.So(errors.Is(dropped[1].Err, calendar.ErrMissingStart), convey.ShouldBeTrue)
				convey.So(errors.Is(dropped[2].Err, calendar.ErrEndBeforeStart), convey.ShouldBeTrue)
			})
		})
	})
}

func TestFilterByCourse(t *testing.T) {
	convey.Convey("Given records from two courses", t, func() {
		classes := []model.ClassSession{{ID: "a", CourseTitle: "Algebra"}, {ID: "b", CourseTitle: "Biology"}}
		exams := []model.ExamWindow{{ID: "x", CourseTitle: "Biology"}}

		convey.Convey("When no course is selected", func() {
			c, x := calendar.FilterByCourse(classes, exams, nil)
			convey.So(len(c), convey.ShouldEqual, 2)
			convey.So(len(x), convey.ShouldEqual, 1)
		})

		convey.Convey("When only Algebra is selected", func() {
			c, x := calendar.FilterByCourse(classes, exams, []string{"Algebra"})
			convey.So(len(c), convey.ShouldEqual, 1)
			convey.So(c[0].ID, convey.ShouldEqual, "a")
			convey.So(len(x), convey.ShouldEqual, 0)
		})
	})
}

func TestDateHelpers(t *testing.T) {
	convey.Convey("Given date strings and clocks", t, func() {
		d, err := calendar.ParseDate("2024-02-28")
		convey.So(err, convey.ShouldBeNil)
		convey.So(d.AddDays(1).String(), convey.ShouldEqual, "2024-02-29")
		convey.So(d.AddDays(2).String(), convey.ShouldEqual, "2024-03-01")
		convey.So(calendar.DaysBetween(d, d.AddDays(10)), convey.ShouldEqual, 10)

		_, err = calendar.ParseDate("28/02/2024")
		convey.So(errors.Is(err, calendar.ErrInvalidDate), convey.ShouldBeTrue)

		clk, err := calendar.ParseClock("07:05")
		convey.So(err, convey.ShouldBeNil)
		convey.So(clk.String(), convey.ShouldEqual, "07:05")

		w := calendar.Window{From: d, To: d.AddDays(3)}
		from, to, ok := w.Clip(d.AddDays(-5), d.AddDays(1))
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(from, convey.ShouldResemble, d)
		convey.So(to, convey.ShouldResemble, d.AddDays(1))
		_, _, ok = w.Clip(d.AddDays(4), d.AddDays(6))
		convey.So(ok, convey.ShouldBeFalse)
	})
}
