package domain

import "errors"

var (
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrInvalidType      = errors.New("invalid task type")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidSchedule  = errors.New("invalid schedule")
	ErrInvalidProgress  = errors.New("invalid progress")
	ErrInvalidRow       = errors.New("invalid row")
	ErrInvalidWindow    = errors.New("invalid row window")
	ErrInvalidViewMode  = errors.New("invalid view mode")
	ErrInvalidShift     = errors.New("invalid shift")
	ErrSelfDependency   = errors.New("task cannot depend on itself")
)
