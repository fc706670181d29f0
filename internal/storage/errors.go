package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Receipts and events are append-only;
	// pools are created once.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConflict is returned when a conditional update finds the record
	// changed since it was read.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
