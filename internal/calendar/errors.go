package calendar

import "errors"

var (
	ErrMissingStart   = errors.New("calendar: record has no usable start")
	ErrMissingEnd     = errors.New("calendar: record has no usable end")
	ErrEndBeforeStart = errors.New("calendar: end is before start")
	ErrInvalidDate    = errors.New("calendar: invalid date")
	ErrInvalidClock   = errors.New("calendar: invalid clock time")
	ErrUnknownWeekday = errors.New("calendar: unknown week start")
)
