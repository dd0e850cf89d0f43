package calendar_test

import (
	"errors"
	"testing"
	"time"

	"coursecal/internal/calendar"
	"github.com/smartystreets/goconvey/convey"
)

func TestBuildGrid(t *testing.T) {
	convey.Convey("Given the reference date 2024-03-01 (a Friday)", t, func() {
		ref := calendar.NewDate(2024, time.March, 1)

		convey.Convey("When the week starts on Sunday", func() {
			cells := calendar.BuildGrid(ref, calendar.WeekStartSunday)

			convey.Convey("Then the grid leads with Feb 25..29 and fills six weeks", func() {
				convey.So(len(cells), convey.ShouldEqual, 42)
				convey.So(cells[0].Date, convey.ShouldResemble, calendar.NewDate(2024, time.February, 25))
				convey.So(cells[4].Date, convey.ShouldResemble, calendar.NewDate(2024, time.February, 29))
				convey.So(cells[4].InDisplayedMonth, convey.ShouldBeFalse)
				convey.So(cells[5].DayOfMonth, convey.ShouldEqual, 1)
				convey.So(cells[5].InDisplayedMonth, convey.ShouldBeTrue)
				convey.So(cells[41].Date, convey.ShouldResemble, calendar.NewDate(2024, time.April, 6))
			})
		})

		convey.Convey("When the week starts on Monday", func() {
			cells := calendar.BuildGrid(ref, calendar.WeekStartMonday)

			convey.Convey("Then the grid leads with Feb 26..29 and fits in five weeks", func() {
				convey.So(len(cells), convey.ShouldEqual, 35)
				convey.So(cells[0].Date, convey.ShouldResemble, calendar.NewDate(2024, time.February, 26))
				convey.So(cells[0].Date.Weekday(), convey.ShouldEqual, time.Monday)
				convey.So(cells[3].Date, convey.ShouldResemble, calendar.NewDate(2024, time.February, 29))
				convey.So(cells[34].Date, convey.ShouldResemble, calendar.NewDate(2024, time.March, 31))
			})
		})
	})

	convey.Convey("Given every month from 2023 through 2025", t, func() {
		convey.Convey("Then each grid is complete for both week starts", func() {
			for _, ws := range []calendar.WeekStart{calendar.WeekStartSunday, calendar.WeekStartMonday} {
				for m := 0; m < 36; m++ {
					ref := calendar.NewDate(2023, time.January+time.Month(m), 17)
					cells := calendar.BuildGrid(ref, ws)

					inMonth := 0
					for _, c := range cells {
						if c.InDisplayedMonth {
							inMonth++
						}
					}
					convey.So(len(cells)%7, convey.ShouldEqual, 0)
					convey.So(inMonth, convey.ShouldEqual, calendar.MonthEnd(ref).Day)
					convey.So(cells[0].Date.Weekday(), convey.ShouldEqual, time.Weekday(ws))
				}
			}
		})
	})
}

func TestMonthNavigation(t *testing.T) {
	convey.Convey("Given a reference date at the end of January", t, func() {
		ref := calendar.NewDate(2024, time.January, 31)

		convey.Convey("Then next and previous months land on day one", func() {
			convey.So(calendar.NextMonth(ref), convey.ShouldResemble, calendar.NewDate(2024, time.February, 1))
			convey.So(calendar.PrevMonth(ref), convey.ShouldResemble, calendar.NewDate(2023, time.December, 1))
			convey.So(calendar.MonthEnd(calendar.NextMonth(ref)).Day, convey.ShouldEqual, 29)
		})
	})
}

func TestParseWeekStart(t *testing.T) {
	convey.Convey("Given week start strings", t, func() {
		ws, err := calendar.ParseWeekStart("Sunday")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ws, convey.ShouldEqual, calendar.WeekStartSunday)

		ws, err = calendar.ParseWeekStart("monday")
		convey.So(err, convey.ShouldBeNil)
		convey.So(ws.String(), convey.ShouldEqual, "monday")
		convey.So(ws.Weekdays()[6], convey.ShouldEqual, time.Sunday)

		_, err = calendar.ParseWeekStart("friday")
		convey.So(errors.Is(err, calendar.ErrUnknownWeekday), convey.ShouldBeTrue)
	})
}
