package fuse

import (
	"context"
	"errors"
	"io"
	"sync"
	"syscall"
	"time"

	"github.com/elazar/flystream/internal/stream"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// lockRetryInterval is how often a blocking lock request retries.
const lockRetryInterval = 50 * time.Millisecond

// handle is an open file backed by one session. The kernel may call into a
// handle concurrently, the session itself is not safe for that.
type handle struct {
	mu      sync.Mutex
	mount   *mount
	path    string
	session *stream.Session

	// pending forces a commit of empty content when nothing is written,
	// as after truncation.
	pending bool
}

var (
	_ gofuse.FileReader   = (*handle)(nil)
	_ gofuse.FileWriter   = (*handle)(nil)
	_ gofuse.FileFlusher  = (*handle)(nil)
	_ gofuse.FileFsyncer  = (*handle)(nil)
	_ gofuse.FileReleaser = (*handle)(nil)
	_ gofuse.FileGetlker  = (*handle)(nil)
	_ gofuse.FileSetlker  = (*handle)(nil)
	_ gofuse.FileSetlkwer = (*handle)(nil)
)

func (m *mount) open(path string, flags uint32) *handle {
	return &handle{
		mount:   m,
		path:    path,
		session: m.handler.Open(m.ctx, path, stream.ModeFromFlags(int(flags))),
	}
}

func (h *handle) errno(op string, err error) syscall.Errno {
	h.mount.logger.Warn("File operation failed", "op", op, "path", h.path, "err", err)

	return toErrno(err)
}

// pendingSize returns the size of uncommitted content, if there is any.
func (h *handle) pendingSize() (int64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.session.Dirty() && !h.pending {
		return 0, false
	}

	return h.session.Written(), true
}

func (h *handle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.session.Seek(off, io.SeekStart); err != nil {
		return nil, h.errno("read", err)
	}

	n, err := io.ReadFull(h.session, dest)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, h.errno("read", err)
	}

	return fuse.ReadResultData(dest[:n]), 0
}

// Write appends data. Writes must continue exactly where the previous one
// ended.
func (h *handle) Write(_ context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off != h.session.Written() {
		return 0, syscall.ENOTSUP
	}

	n, err := h.session.Write(data)
	if err != nil {
		return uint32(n), h.errno("write", err) //nolint:gosec
	}

	return uint32(n), 0 //nolint:gosec
}

// truncate discards everything written so far. The file is emptied when
// the handle is next flushed.
func (h *handle) truncate() syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.session.Mode().CanWrite() {
		return syscall.EBADF
	}
	if h.session.Written() != 0 {
		return syscall.ENOTSUP
	}

	h.pending = true

	return 0
}

// commit flushes uncommitted content to storage.
func (h *handle) commit() syscall.Errno {
	if !h.session.Dirty() && !h.pending {
		return 0
	}

	if h.session.Written() == 0 {
		if err := h.mount.handler.WriteFile(h.mount.ctx, h.path, nil); err != nil {
			return h.errno("flush", err)
		}
	} else if err := h.session.Flush(); err != nil {
		return h.errno("flush", err)
	}

	h.pending = false

	return 0
}

// Flush is called on every close of a file descriptor.
func (h *handle) Flush(_ context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.commit()
}

func (h *handle) Fsync(_ context.Context, _ uint32) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.commit()
}

// Release closes the session, which releases any lock it holds.
func (h *handle) Release(_ context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	errno := h.commit()

	if err := h.session.Close(); err != nil && errno == 0 {
		return h.errno("release", err)
	}

	return errno
}

// Getlk is not supported, lock state can only be changed.
func (h *handle) Getlk(_ context.Context, _ uint64, _ *fuse.FileLock, _ uint32, _ *fuse.FileLock) syscall.Errno {
	return syscall.ENOTSUP
}

func (h *handle) Setlk(_ context.Context, _ uint64, lk *fuse.FileLock, _ uint32) syscall.Errno {
	op, errno := lockOp(lk.Typ)
	if errno != 0 {
		return errno
	}

	granted, errno := h.lock(op)
	if errno != 0 {
		return errno
	}
	if !granted {
		return syscall.EAGAIN
	}

	return 0
}

// Setlkw retries until the lock is granted or the request is interrupted.
func (h *handle) Setlkw(ctx context.Context, _ uint64, lk *fuse.FileLock, _ uint32) syscall.Errno {
	op, errno := lockOp(lk.Typ)
	if errno != 0 {
		return errno
	}

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		granted, errno := h.lock(op)
		if errno != 0 {
			return errno
		}
		if granted {
			return 0
		}

		select {
		case <-ctx.Done():
			return syscall.EINTR
		case <-ticker.C:
		}
	}
}

func (h *handle) lock(op int) (bool, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	granted, err := h.session.Lock(op)
	if err != nil {
		return false, h.errno("lock", err)
	}

	return granted, 0
}

// lockOp maps a POSIX record lock type to a session lock operation.
func lockOp(typ uint32) (int, syscall.Errno) {
	switch typ {
	case unix.F_RDLCK:
		return unix.LOCK_SH, 0
	case unix.F_WRLCK:
		return unix.LOCK_EX, 0
	case unix.F_UNLCK:
		return unix.LOCK_UN, 0
	default:
		return 0, syscall.EINVAL
	}
}
