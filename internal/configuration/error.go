package configuration

import "errors"

var (
	// ErrUnknownBackend is an error that occurs when the configured storage
	// backend is not one of the known kinds.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrUnknownLocks is an error that occurs when the configured lock
	// registry is not one of the known kinds.
	ErrUnknownLocks = errors.New("unknown lock registry")

	// ErrInvalidVisibility is an error that occurs when the configured
	// default visibility is neither public nor private.
	ErrInvalidVisibility = errors.New("invalid visibility")

	// ErrInvalidValue is an error that occurs when a configuration value
	// cannot be parsed into the type of its key.
	ErrInvalidValue = errors.New("invalid configuration value")

	// ErrMissingValue is an error that occurs when the selected backend
	// requires a key that was not set.
	ErrMissingValue = errors.New("missing configuration value")
)
