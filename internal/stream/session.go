package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/elazar/flystream/internal/backend"
	"github.com/elazar/flystream/internal/buffer"
	"github.com/elazar/flystream/internal/locking"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// State is the lifecycle state of a [Session].
type State int

const (
	StateClosed State = iota
	StateOpened
	StateReading
	StateWriting
	StateDirectory
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StateReading:
		return "reading"
	case StateWriting:
		return "writing"
	case StateDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Session is a single open handle on a scheme-qualified path. It is not
// safe for concurrent use.
type Session struct {
	handler *Handler
	ctx     context.Context //nolint:containedctx
	path    string
	mode    Mode
	options backend.Options
	closed  bool

	buffer buffer.Buffer
	dirty  bool
	cursor *readCursor
	dir    *dirCursor
	lock   *locking.Lock
}

// readCursor is a local, seekable copy of the content at the session path.
type readCursor struct {
	spool *buffer.Overflow
	file  afero.File
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithOptions overlays storage options for writes made by the session on
// top of those configured for its scheme.
func WithOptions(opts backend.Options) SessionOption {
	return func(s *Session) {
		s.options = s.options.Merge(opts)
	}
}

// Open returns a new [Session] on path. Open only records its arguments,
// storage is first contacted by the operations that need it.
func (h *Handler) Open(ctx context.Context, path string, mode Mode, opts ...SessionOption) *Session {
	s := &Session{
		handler: h,
		ctx:     ctx,
		path:    path,
		mode:    mode,
		options: backend.Options{},
	}

	for _, opt := range opts {
		opt(s)
	}

	h.logger.Debug("Session opened", "path", path, "mode", mode)

	return s
}

func (s *Session) Path() string {
	return s.path
}

func (s *Session) Mode() Mode {
	return s.mode
}

// State reports the current lifecycle state. A session both read from and
// written to reports [StateWriting].
func (s *Session) State() State {
	switch {
	case s.closed:
		return StateClosed
	case s.dir != nil:
		return StateDirectory
	case s.buffer != nil:
		return StateWriting
	case s.cursor != nil:
		return StateReading
	default:
		return StateOpened
	}
}

// Dirty reports whether there are writes that were not flushed yet.
func (s *Session) Dirty() bool {
	return s.dirty
}

// Written returns the number of bytes accumulated by writes.
func (s *Session) Written() int64 {
	if s.buffer == nil {
		return 0
	}

	return s.buffer.Len()
}

func (s *Session) fail(op string, err error) error {
	s.handler.logger.Error("Session operation failed", "op", op, "path", s.path, "err", err)

	return err
}

func (s *Session) checkOpen(op string) error {
	if s.closed {
		return s.fail(op, fmt.Errorf("(stream) %s: %w", op, ErrSessionClosed))
	}

	return nil
}

// Read reads from the content at the session path, fetching it from
// storage on first use. It returns [io.EOF] at the end of the content.
func (s *Session) Read(p []byte) (int, error) {
	c, err := s.readCursor("read")
	if err != nil {
		return 0, err
	}

	n, err := c.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, s.fail("read", fmt.Errorf("(stream) read: %w: %w", ErrReadCursor, err))
	}

	return n, err
}

// Write appends p to the session's buffer, creating it on first use.
func (s *Session) Write(p []byte) (int, error) {
	if err := s.checkOpen("write"); err != nil {
		return 0, err
	}

	if !s.mode.CanWrite() {
		return 0, s.fail("write", fmt.Errorf("(stream) write: %w", ErrReadOnlyMode))
	}

	if len(p) == 0 {
		return 0, nil
	}

	// The session keeps a buffer only once it has accepted content, so a
	// buffer that failed its first write is never flushed.
	b := s.buffer
	if b == nil {
		b = s.handler.buffers.New()
	}

	n, err := b.Write(p)
	if n > 0 {
		s.buffer = b
		s.dirty = true
	} else if s.buffer == nil {
		if cerr := b.Close(); cerr != nil {
			s.handler.logger.Warn("Failed to close unused buffer", "path", s.path, "err", cerr)
		}
	}
	if err != nil {
		return n, s.fail("write", fmt.Errorf("(stream) write: %w: %w", ErrBufferWrite, err))
	}

	return n, nil
}

// commitEmpty replaces the stored content at the session path with nothing.
func (s *Session) commitEmpty() error {
	if err := s.checkOpen("flush"); err != nil {
		return err
	}

	if !s.mode.CanWrite() {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, ErrReadOnlyMode))
	}

	t, err := s.handler.resolve(s.path)
	if err != nil {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, err))
	}

	if err := t.fs.Write(s.ctx, t.path, nil, s.handler.options(t.scheme, s.options)); err != nil {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, err))
	}

	return nil
}

// Flush commits everything written so far to storage. It fails with
// [ErrNoBuffer] when no content was accepted. The buffer keeps its content,
// so a failed flush can be retried.
func (s *Session) Flush() error {
	if err := s.checkOpen("flush"); err != nil {
		return err
	}

	if s.buffer == nil {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, ErrNoBuffer))
	}

	t, err := s.handler.resolve(s.path)
	if err != nil {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, err))
	}

	if err := s.buffer.Flush(s.ctx, t.fs, t.path, s.handler.options(t.scheme, s.options)); err != nil {
		return s.fail("flush", fmt.Errorf("(stream) flush: %w: %w", ErrFlush, err))
	}

	s.dirty = false

	return nil
}

// Seek sets the offset for the next read.
func (s *Session) Seek(offset int64, whence int) (int64, error) {
	c, err := s.readCursor("seek")
	if err != nil {
		return 0, err
	}

	pos, err := c.file.Seek(offset, whence)
	if err != nil {
		return 0, s.fail("seek", fmt.Errorf("(stream) seek: %w: %w", ErrReadCursor, err))
	}

	return pos, nil
}

// Tell returns the offset of the next read.
func (s *Session) Tell() (int64, error) {
	c, err := s.readCursor("tell")
	if err != nil {
		return 0, err
	}

	pos, err := c.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, s.fail("tell", fmt.Errorf("(stream) tell: %w: %w", ErrReadCursor, err))
	}

	return pos, nil
}

// Truncate resizes the local copy of the content. Storage is not modified.
func (s *Session) Truncate(size int64) error {
	c, err := s.readCursor("truncate")
	if err != nil {
		return err
	}

	if err := c.file.Truncate(size); err != nil {
		return s.fail("truncate", fmt.Errorf("(stream) truncate: %w: %w", ErrReadCursor, err))
	}

	return nil
}

// Stat describes the local copy of the content.
func (s *Session) Stat() (StatResult, error) {
	c, err := s.readCursor("stat")
	if err != nil {
		return StatResult{}, err
	}

	info, err := c.file.Stat()
	if err != nil {
		return StatResult{}, s.fail("stat", fmt.Errorf("(stream) stat: %w: %w", ErrReadCursor, err))
	}

	return StatResult{
		Mode:  unix.S_IFREG | uint32(s.handler.visibility.ForFile(backend.VisibilityPublic)),
		Size:  info.Size(),
		Mtime: info.ModTime().Unix(),
	}, nil
}

// EOF reports whether the read offset is at or past the end of the content.
func (s *Session) EOF() (bool, error) {
	pos, err := s.Tell()
	if err != nil {
		return false, err
	}

	st, err := s.Stat()
	if err != nil {
		return false, err
	}

	return pos >= st.Size, nil
}

// SetBlocking succeeds for either mode, every operation already completes
// before returning.
func (s *Session) SetBlocking(bool) error {
	_, err := s.readCursor("set_blocking")

	return err
}

// SetReadTimeout always fails with [ErrUnsupported].
func (s *Session) SetReadTimeout(time.Duration) error {
	return s.fail("set_read_timeout", fmt.Errorf("(stream) set_read_timeout: %w", ErrUnsupported))
}

// SetWriteBuffer always fails with [ErrUnsupported], writes are buffered
// until flushed regardless.
func (s *Session) SetWriteBuffer(int) error {
	return s.fail("set_write_buffer", fmt.Errorf("(stream) set_write_buffer: %w", ErrUnsupported))
}

// Close flushes unflushed writes, then releases the read copy, the buffer,
// any open directory and any held lock. Resources are released even when
// the flush fails. Closing a closed session does nothing.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}

	var errs []error

	if s.buffer != nil && s.dirty {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}

	if s.cursor != nil {
		if err := s.cursor.spool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("(stream) failed to release read cursor: %w", err))
		}
		s.cursor = nil
	}

	if s.buffer != nil {
		if err := s.buffer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("(stream) failed to release buffer: %w", err))
		}
		s.buffer = nil
		s.dirty = false
	}

	if s.dir != nil {
		s.dir.stop()
		s.dir = nil
	}

	if s.lock != nil {
		s.handler.locks.Release(s.lock)
		s.lock = nil
	}

	s.closed = true
	s.handler.logger.Debug("Session closed", "path", s.path)

	return errors.Join(errs...)
}

// readCursor returns the local copy of the content, copying it from
// storage on first use.
func (s *Session) readCursor(op string) (*readCursor, error) {
	if err := s.checkOpen(op); err != nil {
		return nil, err
	}

	if s.cursor != nil {
		return s.cursor, nil
	}

	t, err := s.handler.resolve(s.path)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("(stream) %s: %w: %w", op, ErrReadCursor, err))
	}

	rc, err := t.fs.ReadStream(s.ctx, t.path)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("(stream) %s: %w: %w", op, ErrReadCursor, backendError("read_stream", err)))
	}
	defer rc.Close()

	cfg := s.handler.spool
	spool := buffer.NewOverflow(cfg.maxMemory, cfg.fs, cfg.dir)

	if _, err := io.Copy(spool, rc); err != nil {
		spool.Close()

		return nil, s.fail(op, fmt.Errorf("(stream) %s: %w: %w", op, ErrReadCursor, err))
	}

	file, err := spool.Rewind()
	if err != nil {
		spool.Close()

		return nil, s.fail(op, fmt.Errorf("(stream) %s: %w: %w", op, ErrReadCursor, err))
	}

	s.cursor = &readCursor{spool: spool, file: file}

	return s.cursor, nil
}
