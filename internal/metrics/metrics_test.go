package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"coursecal/internal/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a fresh metrics manager", t, func() {
		m := metrics.NewManager(metrics.WithNamespace("test"))

		convey.Convey("When layouts, drops and refreshes are observed", func() {
			m.ObserveLayout(5*time.Millisecond, 12, 2)
			m.ObserveLayout(time.Millisecond, 3, 0)
			m.AddDropped("exam", 3)
			m.AddDropped("class", 0)
			m.ObserveRefresh(time.Second, 4, 1, nil)
			m.ObserveRefresh(time.Second, 5, 0, errors.New("boom"))
			m.ObserveHTTP("/api/month", 200, time.Millisecond)

			convey.Convey("Then the exposition contains the expected samples", func() {
				rec := httptest.NewRecorder()
				m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
				body, _ := io.ReadAll(rec.Body)
				text := string(body)

				convey.So(rec.Code, convey.ShouldEqual, 200)
				convey.So(text, convey.ShouldContainSubstring, "test_layout_built_total 2")
				convey.So(text, convey.ShouldContainSubstring, "test_layout_unassigned_events_total 2")
				convey.So(text, convey.ShouldContainSubstring, `test_normalize_dropped_records_total{category="exam"} 3`)
				convey.So(text, convey.ShouldNotContainSubstring, `category="class"`)
				convey.So(text, convey.ShouldContainSubstring, `test_refresh_runs_total{outcome="error"} 1`)
				convey.So(text, convey.ShouldContainSubstring, "test_store_version 4")
				convey.So(text, convey.ShouldContainSubstring, `test_http_requests_total{code="200",route="/api/month"} 1`)
			})
		})
	})
}
