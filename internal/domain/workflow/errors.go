package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a status transition is not declared
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned when a status is not part of a definition
	ErrInvalidState = errors.New("invalid state")
)
