package config

import "errors"

var (
	ErrEmptyPath     = errors.New("config path is empty")
	ErrNilConfig     = errors.New("config is nil")
	ErrInvalidConfig = errors.New("invalid config")
)
