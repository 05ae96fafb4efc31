package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrVersionConflict is returned when an optimistic-concurrency write
	// loses to a concurrent writer. Callers retry from a fresh read.
	ErrVersionConflict = errors.New("trip modified concurrently")
)
