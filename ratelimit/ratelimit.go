package ratelimit

import "errors"

// Common errors.
var (
	ErrInvalidCapacity = errors.New("invalid capacity")
	ErrInvalidWindow   = errors.New("invalid window")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrInvalidSchedule = errors.New("invalid schedule")
)
