package ics_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"coursecal/internal/ics"
	"coursecal/internal/model"
	"github.com/smartystreets/goconvey/convey"
)

const classFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:algebra-weekly\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240304T090000Z\r\n" +
	"DTEND:20240304T103000Z\r\n" +
	"SUMMARY:Algebra lecture\r\n" +
	"CATEGORIES:Algebra I\r\n" +
	"RRULE:FREQ=WEEKLY;COUNT=4\r\n" +
	"EXDATE:20240318T090000Z\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:algebra-weekly\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"RECURRENCE-ID:20240311T090000Z\r\n" +
	"DTSTART:20240311T140000Z\r\n" +
	"DTEND:20240311T150000Z\r\n" +
	"SUMMARY:Algebra lecture (moved)\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240305T090000Z\r\n" +
	"SUMMARY:No UID\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const examFeed = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:midterm\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240310T080000Z\r\n" +
	"DTEND:20240312T200000Z\r\n" +
	"SUMMARY:Midterm\r\n" +
	"X-MIN-SCORE:18\r\n" +
	"X-MAX-SCORE:30\r\n" +
	"COLOR:blue\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func expandAll(events []ics.ParsedEvent) ics.ExpandResult {
	res, err := ics.Expand(events, ics.ExpandConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC),
	})
	convey.So(err, convey.ShouldBeNil)
	return res
}

func TestParseAndExpand(t *testing.T) {
	convey.Convey("Given a weekly class feed with an exception and an override", t, func() {
		src := ics.Source{ID: "algebra", URL: "https://example.com/a.ics?token=x", Kind: model.CategoryClass}

		events, err := ics.ParseICS(src, []byte(classFeed))

		convey.Convey("Then the VEVENT without UID is skipped", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(events), convey.ShouldEqual, 2)
			convey.So(events[0].Course, convey.ShouldEqual, "Algebra I")
			convey.So(events[1].IsOverride(), convey.ShouldBeTrue)
		})

		convey.Convey("When it is expanded over March 2024", func() {
			res := expandAll(events)
			classes, exams := ics.Records(res.Instances)

			convey.Convey("Then the excluded week is gone and the moved one follows the override", func() {
				convey.So(len(exams), convey.ShouldEqual, 0)
				convey.So(len(classes), convey.ShouldEqual, 3)
				convey.So(classes[0].ID, convey.ShouldEqual, "algebra-weekly@20240304T090000Z")
				convey.So(classes[0].DurationMinutes, convey.ShouldEqual, 90)
				convey.So(classes[0].CourseTitle, convey.ShouldEqual, "Algebra I")
				convey.So(classes[1].Title, convey.ShouldEqual, "Algebra lecture (moved)")
				convey.So(classes[1].RecordedStart, convey.ShouldEqual, time.Date(2024, time.March, 11, 14, 0, 0, 0, time.UTC))
				convey.So(classes[2].OccurrenceDate, convey.ShouldEqual, time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC))
			})
		})
	})

	convey.Convey("Given an exam feed with score bounds", t, func() {
		src := ics.Source{ID: "exams", URL: "https://example.com/e.ics", Kind: model.CategoryExam, Course: "Algebra I"}
		events, err := ics.ParseICS(src, []byte(examFeed))
		convey.So(err, convey.ShouldBeNil)

		res := expandAll(events)
		_, exams := ics.Records(res.Instances)

		convey.Convey("Then it becomes an exam window carrying the scores", func() {
			convey.So(len(exams), convey.ShouldEqual, 1)
			x := exams[0]
			convey.So(x.ID, convey.ShouldEqual, "midterm")
			convey.So(x.CourseTitle, convey.ShouldEqual, "Algebra I")
			convey.So(x.MinScore, convey.ShouldEqual, 18)
			convey.So(x.MaxScore, convey.ShouldEqual, 30)
			convey.So(x.Color, convey.ShouldEqual, model.ColorBlue)
			convey.So(x.AvailableFrom, convey.ShouldEqual, time.Date(2024, time.March, 10, 8, 0, 0, 0, time.UTC))
			convey.So(x.DueBy, convey.ShouldEqual, time.Date(2024, time.March, 12, 20, 0, 0, 0, time.UTC))
		})
	})

	convey.Convey("Given bad input", t, func() {
		_, err := ics.ParseICS(ics.Source{ID: "x"}, nil)
		convey.So(errors.Is(err, ics.ErrEmptyBody), convey.ShouldBeTrue)

		_, err = ics.Expand(nil, ics.ExpandConfig{
			RangeStart: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
			RangeEnd:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		})
		convey.So(errors.Is(err, ics.ErrBadRange), convey.ShouldBeTrue)
	})
}

func TestExport(t *testing.T) {
	convey.Convey("Given normalized class and exam events", t, func() {
		start := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
		events := []model.Event{
			{ID: "c1", CourseTitle: "Algebra I", Title: "Lecture", Start: start, End: start.Add(time.Hour), Detail: model.ClassDetail{DurationMinutes: 60}},
			{ID: "x1", CourseTitle: "Algebra I", Title: "Midterm", Start: start, End: start.Add(48 * time.Hour), Detail: model.ExamDetail{MinScore: 18, MaxScore: 30}},
		}

		convey.Convey("When they are exported", func() {
			body := ics.Export("March 2024", events, start)

			convey.Convey("Then the feed parses back with the same ids and scores", func() {
				convey.So(body, convey.ShouldContainSubstring, "BEGIN:VCALENDAR")
				parsed, err := ics.ParseICS(ics.Source{ID: "roundtrip", Kind: model.CategoryExam}, []byte(body))
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(parsed), convey.ShouldEqual, 2)
				convey.So(parsed[0].UID, convey.ShouldEqual, "c1")
				convey.So(parsed[0].Course, convey.ShouldEqual, "Algebra I")
				convey.So(parsed[1].MaxScore, convey.ShouldEqual, 30)
				convey.So(parsed[1].End.Equal(start.Add(48*time.Hour)), convey.ShouldBeTrue)
				convey.So(parsed[1].Color, convey.ShouldEqual, model.ColorRed)
			})
		})
	})
}

func TestFetcher(t *testing.T) {
	convey.Convey("Given a feed server that honors ETag", t, func() {
		var (
			hits    atomic.Int32
			failing atomic.Bool
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			if failing.Load() {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte(examFeed))
		}))
		defer srv.Close()

		f := ics.NewFetcherWithClient(t.TempDir(), srv.Client())
		src := ics.Source{ID: "exams", URL: srv.URL + "/exams.ics", Kind: model.CategoryExam}
		ctx := context.Background()

		convey.Convey("When fetched twice", func() {
			first, err := f.FetchOne(ctx, src)
			convey.So(err, convey.ShouldBeNil)
			second, err := f.FetchOne(ctx, src)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the second response is served from cache", func() {
				convey.So(first.FromCache, convey.ShouldBeFalse)
				convey.So(second.FromCache, convey.ShouldBeTrue)
				convey.So(string(second.Body), convey.ShouldEqual, examFeed)
				convey.So(hits.Load(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the server starts failing after a good fetch", func() {
			_, err := f.FetchOne(ctx, src)
			convey.So(err, convey.ShouldBeNil)
			failing.Store(true)

			res, err := f.FetchOne(ctx, src)

			convey.Convey("Then the last good body is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.FromCache, convey.ShouldBeTrue)
				convey.So(strings.Contains(string(res.Body), "Midterm"), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the server fails with nothing cached", func() {
			failing.Store(true)
			results, errs := f.FetchAll(ctx, []ics.Source{src, {ID: "empty"}})

			convey.Convey("Then both sources report errors", func() {
				convey.So(len(results), convey.ShouldEqual, 0)
				convey.So(len(errs), convey.ShouldEqual, 2)
				convey.So(errors.Is(errs[1], ics.ErrEmptyURL), convey.ShouldBeTrue)
			})
		})
	})
}
