package fuse

import (
	"context"
	"errors"
	"syscall"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/pathing"
	"github.com/elazar/flystream/internal/stream"
)

var (
	// ErrNoMountpoint is an error that occurs when a mount is requested
	// without a mountpoint.
	ErrNoMountpoint = errors.New("mountpoint is required")

	// ErrNoHandler is an error that occurs when a mount is requested without
	// a session handler.
	ErrNoHandler = errors.New("handler is required")
)

// toErrno maps session and storage errors to the errno the kernel reports.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, stream.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, stream.ErrReadOnlyMode):
		return syscall.EBADF
	case errors.Is(err, stream.ErrUnsupported), errors.Is(err, backend.ErrUnsupportedOperation):
		return syscall.ENOTSUP
	case errors.Is(err, stream.ErrCrossScheme):
		return syscall.EXDEV
	case errors.Is(err, backend.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, pathing.ErrPathTraversal), errors.Is(err, pathing.ErrCorruptedPath):
		return syscall.EINVAL
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return syscall.EINTR
	default:
		return syscall.EIO
	}
}
