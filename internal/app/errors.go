package app

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrDependencyCycle   = errors.New("dependency cycle")
	ErrInvalidGesture    = errors.New("invalid gesture")
	ErrGestureNotAllowed = errors.New("gesture not allowed")
	ErrInvalidImport     = errors.New("invalid import")
)
