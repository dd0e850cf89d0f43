package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"coursecal/internal/calendar"
	"coursecal/internal/config"
	"coursecal/internal/ics"
	appLog "coursecal/internal/log"
	"coursecal/internal/metrics"
	"coursecal/internal/model"
	"coursecal/internal/store"
)

// Server serves the month view as JSON, HTML and ICS.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	metrics *metrics.Manager
	mux     *http.ServeMux

	layouts layoutCache

	now func() time.Time
}

// NewServer constructs a new Server. m may be nil, in which case /metrics
// is not registered.
func NewServer(cfg *config.Config, st *store.Store, m *metrics.Manager) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		metrics: m,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health and /metrics with
// HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coursecal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("web: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.handle("/health", s.handleHealth)
	s.handle("/api/month", s.handleMonth)
	s.handle("/api/day", s.handleDay)
	s.handle("/calendar", s.handleCalendarPage)
	s.handle("/calendar.ics", s.handleCalendarICS)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
}

// handle registers h under route with request metrics.
func (s *Server) handle(route string, h http.HandlerFunc) {
	s.mux.Handle(route, s.instrument(route, h))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveHTTP(route, rec.code, time.Since(started))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// referenceDate reads ?date=YYYY-MM-DD, defaulting to today in the
// configured timezone.
func (s *Server) referenceDate(r *http.Request) (calendar.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return calendar.DateOf(s.now().In(s.cfg.Location())), nil
	}
	return calendar.ParseDate(raw)
}

// selectedCourses reads repeated ?course= values. Comma separated lists are
// accepted too.
func selectedCourses(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["course"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter (expected YYYY-MM-DD)")
		return
	}
	courses := selectedCourses(r)
	layout := s.monthLayout(ref, courses)

	resp := monthResponse{
		Reference:  layout.Reference,
		MonthStart: layout.Month.From,
		MonthEnd:   layout.Month.To,
		Prev:       calendar.PrevMonth(ref),
		Next:       calendar.NextMonth(ref),
		WeekStart:  layout.WeekStart.String(),
		Weekdays:   weekdayNames(layout.WeekStart),
		MaxVisible: calendar.MaxVisibleEvents,
		Courses:    s.store.Snapshot().Courses(),
		Selected:   courses,
		Cells:      make([]cellDTO, 0, len(layout.Cells)),
	}
	if resp.Courses == nil {
		resp.Courses = []string{}
	}
	for _, c := range layout.Cells {
		resp.Cells = append(resp.Cells, cellDTO{
			Date:             c.Date,
			DayOfMonth:       c.DayOfMonth,
			InDisplayedMonth: c.InDisplayedMonth,
			Events:           toPositionedDTOs(c.Events),
			HiddenCount:      c.HiddenCount,
			UnplacedCount:    c.Unplaced,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDay lists every event touching one day, including those that did
// not fit inline. Lanes come from the layout of the day's own month.
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	day, err := s.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter (expected YYYY-MM-DD)")
		return
	}
	layout := s.monthLayout(day, selectedCourses(r))
	details := layout.Details(day)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:        day,
		HiddenCount: calendar.HiddenCount(len(details)),
		Events:      toPositionedDTOs(details),
	})
}

func (s *Server) handleCalendarICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date parameter (expected YYYY-MM-DD)")
		return
	}
	layout := s.monthLayout(ref, selectedCourses(r))

	events := make([]model.Event, 0, len(layout.Events()))
	for _, ev := range layout.Events() {
		if _, _, ok := layout.Month.Clip(calendar.DateOf(ev.Start), calendar.DateOf(ev.End)); ok {
			events = append(events, ev)
		}
	}
	body := ics.Export("coursecal "+layout.Month.From.String()[:7], events, s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="coursecal-%s.ics"`, layout.Month.From.String()[:7]))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
