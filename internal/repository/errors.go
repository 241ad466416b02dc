package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located. Ownership failures
	// surface as ErrNotFound too, so callers cannot probe for existence.
	ErrNotFound = errors.New("repository: not found")

	// ErrConflict indicates a unique constraint violation, e.g. a duplicate
	// user email.
	ErrConflict = errors.New("repository: conflict")

	// ErrInvalidArgument indicates the store rejected a value, e.g. a
	// malformed id or an out-of-range enum.
	ErrInvalidArgument = errors.New("repository: invalid argument")
)
