package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coursecal/internal/calendar"
	"coursecal/internal/catalog"
	"coursecal/internal/model"
	"github.com/smartystreets/goconvey/convey"
)

const sample = `
courses:
  - title: Algebra I
    edition_start: "09:00"
    classes:
      - id: alg-1
        title: Lecture 1
        date: "2024-03-11"
        duration_minutes: 90
      - title: Lecture 2
        date: "2024-03-13"
        start: "15:00"
    exams:
      - title: Midterm
        available_from: "2024-03-10T09:00:00"
        due_by: "2024-03-12T18:00"
        min_score: 18
        max_score: 30
        color: blue
  - title: Biology
    exams:
      - id: bio-broken
        title: Quiz
        available_from: "soon"
        due_by: "2024-03-20"
`

func TestDecode(t *testing.T) {
	convey.Convey("Given a catalog with two courses", t, func() {
		classes, exams, err := catalog.Decode([]byte(sample), time.UTC)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then records carry their course and edition hours", func() {
			convey.So(len(classes), convey.ShouldEqual, 2)
			convey.So(classes[0].ID, convey.ShouldEqual, "alg-1")
			convey.So(classes[0].CourseTitle, convey.ShouldEqual, "Algebra I")
			convey.So(classes[0].EditionStartTime, convey.ShouldEqual, "09:00")
			convey.So(classes[1].RecordedStart, convey.ShouldEqual, time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC))

			convey.So(len(exams), convey.ShouldEqual, 2)
			convey.So(exams[0].DueBy, convey.ShouldEqual, time.Date(2024, time.March, 12, 18, 0, 0, 0, time.UTC))
			convey.So(exams[0].Color, convey.ShouldEqual, model.ColorBlue)
		})

		convey.Convey("Then missing ids are generated and stable across decodes", func() {
			convey.So(classes[1].ID, convey.ShouldNotBeBlank)
			convey.So(exams[0].ID, convey.ShouldNotBeBlank)

			again, againExams, err := catalog.Decode([]byte(sample), time.UTC)
			convey.So(err, convey.ShouldBeNil)
			convey.So(again[1].ID, convey.ShouldEqual, classes[1].ID)
			convey.So(againExams[0].ID, convey.ShouldEqual, exams[0].ID)
			convey.So(againExams[0].ID, convey.ShouldNotEqual, again[1].ID)
		})

		convey.Convey("When normalized, the broken exam is dropped", func() {
			events, dropped := calendar.Normalize(classes, exams, calendar.NormalizeOptions{Location: time.UTC})
			convey.So(len(events), convey.ShouldEqual, 3)
			convey.So(len(dropped), convey.ShouldEqual, 1)
			convey.So(dropped[0].ID, convey.ShouldEqual, "bio-broken")
		})
	})

	convey.Convey("Given files on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "records.yaml")
		convey.So(os.WriteFile(path, []byte(sample), 0o600), convey.ShouldBeNil)

		classes, _, err := catalog.Load(path, time.UTC)
		convey.So(err, convey.ShouldBeNil)
		convey.So(len(classes), convey.ShouldEqual, 2)

		_, _, err = catalog.Load("", time.UTC)
		convey.So(errors.Is(err, catalog.ErrEmptyPath), convey.ShouldBeTrue)

		_, _, err = catalog.Load(filepath.Join(dir, "missing.yaml"), time.UTC)
		convey.So(errors.Is(err, os.ErrNotExist), convey.ShouldBeTrue)

		_, _, err = catalog.Decode([]byte("courses: [unclosed"), time.UTC)
		convey.So(err, convey.ShouldNotBeNil)
	})
}
