package backend

import (
	"errors"
	"io/fs"
)

var (
	// ErrNotExist is an error that occurs when a file or directory is
	// addressed that the storage does not hold. It matches [fs.ErrNotExist].
	ErrNotExist = fs.ErrNotExist

	// ErrIsDirectory is an error that occurs when a file operation is
	// attempted on a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrUnsupportedOperation is an error that occurs when a storage adapter
	// cannot answer a query directly, callers may then fall back to listing.
	ErrUnsupportedOperation = errors.New("operation not supported by storage")
)
