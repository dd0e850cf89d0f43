package ics

import "errors"

var (
	ErrEmptyBody          = errors.New("ics: empty body")
	ErrEmptyURL           = errors.New("ics: source URL is empty")
	ErrMissingUID         = errors.New("ics: missing UID")
	ErrNotModifiedNoCache = errors.New("ics: 304 Not Modified but no cached body available")
	ErrBadRange           = errors.New("ics: range end is before range start")
)
