package model

import "time"

// Category is the kind of calendar entry shown in the month view.
type Category string

const (
	CategoryClass Category = "class"
	CategoryExam  Category = "exam"
)

// Color is a rendering hint for an event bar.
type Color string

const (
	ColorNone Color = ""
	ColorBlue Color = "blue"
	ColorRed  Color = "red"
)

// ClassSession is one scheduled lesson of a course edition, as delivered by
// the catalog or a class ICS feed.
type ClassSession struct {
	ID          string
	CourseTitle string
	Title       string
	Description string

	// OccurrenceDate is the calendar day of the session. Only the date part
	// is meaningful unless RecordedStart is zero, in which case a non-zero
	// time of day here is used as the recorded start.
	OccurrenceDate time.Time

	// RecordedStart is the session's own start instant, if the source has one.
	RecordedStart time.Time

	// DurationMinutes is zero when the source carries no duration.
	DurationMinutes int

	// EditionStartTime / EditionEndTime are wall-clock "HH:MM" strings
	// configured on the course edition. Empty means not configured.
	EditionStartTime string
	EditionEndTime   string

	Color Color
}

// ExamWindow is the availability window of an exam.
type ExamWindow struct {
	ID          string
	CourseTitle string
	Title       string
	Description string

	AvailableFrom time.Time
	DueBy         time.Time

	MinScore int
	MaxScore int

	Color Color
}

// Detail carries category-specific attributes. The concrete type always
// matches Event.Category: ClassDetail for classes, ExamDetail for exams.
type Detail interface {
	Category() Category
}

// ClassDetail holds class-only attributes.
type ClassDetail struct {
	DurationMinutes int
}

func (ClassDetail) Category() Category { return CategoryClass }

// ExamDetail holds exam-only attributes. Scores are not interpreted by the
// layout engine.
type ExamDetail struct {
	MinScore int
	MaxScore int
}

func (ExamDetail) Category() Category { return CategoryExam }

// Event is the normalized, category-independent representation consumed by
// the month layout. Start and End are wall-clock instants in the display
// location and Start is never after End.
type Event struct {
	ID          string
	CourseTitle string
	Title       string
	Description string

	Start time.Time
	End   time.Time

	// ColorHint is the explicit color from the source, ColorNone if absent.
	ColorHint Color

	Detail Detail
}

// Category returns the event's category, derived from its detail.
func (e Event) Category() Category {
	if e.Detail == nil {
		return ""
	}
	return e.Detail.Category()
}

// Color returns the explicit color hint or the category default
// (class -> blue, exam -> red).
func (e Event) Color() Color {
	if e.ColorHint != ColorNone {
		return e.ColorHint
	}
	switch e.Detail.(type) {
	case ClassDetail:
		return ColorBlue
	case ExamDetail:
		return ColorRed
	default:
		return ColorBlue
	}
}

// ParseColor maps a free-form string to a Color, ColorNone if unknown.
func ParseColor(s string) Color {
	switch Color(s) {
	case ColorBlue, ColorRed:
		return Color(s)
	default:
		return ColorNone
	}
}
