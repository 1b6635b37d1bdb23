package buffer

import "errors"

var (
	// ErrTempFile is an error that occurs when a temporary file backing a
	// buffer cannot be created or filled.
	ErrTempFile = errors.New("temporary file unavailable")

	// ErrWrite is an error that occurs when content cannot be appended to
	// the buffer's backing store.
	ErrWrite = errors.New("buffer write failed")

	// ErrUnknownKind is an error that occurs when a buffer strategy is
	// requested by a name that is not known.
	ErrUnknownKind = errors.New("unknown buffer kind")
)
