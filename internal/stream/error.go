package stream

import (
	"errors"

	"github.com/elazar/flystream/internal/backend"
)

var (
	// ErrBackendOperation is an error that occurs when the storage behind a
	// scheme fails an operation.
	ErrBackendOperation = errors.New("backend operation failed")

	// ErrReadOnlyMode is an error that occurs when a session opened for
	// reading only is written to.
	ErrReadOnlyMode = errors.New("session is read-only")

	// ErrBufferWrite is an error that occurs when written content cannot be
	// accepted by the session's buffer.
	ErrBufferWrite = errors.New("buffer write failed")

	// ErrFlush is an error that occurs when buffered content cannot be
	// committed. The buffered content is kept for a retry.
	ErrFlush = errors.New("flush failed")

	// ErrNoBuffer is an error that occurs when a session is flushed that was
	// never written to.
	ErrNoBuffer = errors.New("nothing was written")

	// ErrReadCursor is an error that occurs when the content of a session
	// cannot be obtained or positioned.
	ErrReadCursor = errors.New("read cursor failed")

	// ErrUnsupported is an error that occurs for operations that storage
	// cannot express, such as changing ownership or permission bits.
	ErrUnsupported = errors.New("operation not supported")

	// ErrSessionClosed is an error that occurs when a closed session is used.
	ErrSessionClosed = errors.New("session is closed")

	// ErrDirectoryNotOpen is an error that occurs when directory entries are
	// read from a session without an open directory.
	ErrDirectoryNotOpen = errors.New("directory is not open")

	// ErrInvalidLockOperation is an error that occurs for lock operation
	// codes other than shared, exclusive and unlock.
	ErrInvalidLockOperation = errors.New("invalid lock operation")

	// ErrInvalidMode is an error that occurs when an open mode string cannot
	// be parsed.
	ErrInvalidMode = errors.New("invalid open mode")

	// ErrCrossScheme is an error that occurs when a rename spans two schemes.
	ErrCrossScheme = errors.New("rename across schemes")

	// ErrNotExist matches [backend.ErrNotExist] and [fs.ErrNotExist].
	ErrNotExist = backend.ErrNotExist
)
