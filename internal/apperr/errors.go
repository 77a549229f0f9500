// Package apperr defines the sentinel errors shared across Sowilo packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
)

// Scheduling errors. Only ErrNoSlotAvailable is returned by the engine today;
// the others are declared but never raised.
var (
	ErrNoSlotAvailable  = errors.New("no slot available")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrDeadlineTooSoon  = errors.New("deadline too soon")
	ErrAlreadyScheduled = errors.New("already scheduled")
)
