package storage

import "errors"

var (
	// ErrNotSupported is returned by deployments without a storage backend.
	ErrNotSupported = errors.New("storage: not supported")

	// ErrInvalidField is returned when a data key cannot be used as a column name.
	ErrInvalidField = errors.New("storage: invalid field name")
)
