package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key already
	// exists. Archived results are immutable.
	ErrDuplicateKey = errors.New("duplicate key: archived records cannot be replaced")

	// ErrInvalidInput is returned when a record is missing its key or payload.
	ErrInvalidInput = errors.New("invalid input")
)
