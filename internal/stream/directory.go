package stream

import (
	"fmt"
	"io"
	"iter"

	"github.com/elazar/flystream/internal/backend"
)

// dirCursor pulls entries from a single, non-restartable listing.
type dirCursor struct {
	next func() (backend.Entry, error, bool)
	stop func()
}

func emptyListing(func(backend.Entry, error) bool) {}

// OpenDir starts iterating the entries directly below the session path. A
// path that cannot be resolved iterates as an empty directory.
func (s *Session) OpenDir() error {
	if err := s.checkOpen("opendir"); err != nil {
		return err
	}

	if s.dir != nil {
		s.dir.stop()
	}
	s.dir = s.list()

	return nil
}

func (s *Session) list() *dirCursor {
	var listing iter.Seq2[backend.Entry, error] = emptyListing

	if t, err := s.handler.resolve(s.path); err != nil {
		s.fail("opendir", err) //nolint:errcheck
	} else {
		listing = t.fs.ListContents(s.ctx, t.path, false)
	}

	next, stop := iter.Pull2(listing)

	return &dirCursor{
		next: next,
		stop: stop,
	}
}

// ReadDirEntry returns the next entry, or [io.EOF] once all were returned.
func (s *Session) ReadDirEntry() (backend.Entry, error) {
	if err := s.checkOpen("readdir"); err != nil {
		return backend.Entry{}, err
	}
	if s.dir == nil {
		return backend.Entry{}, s.fail("readdir", fmt.Errorf("(stream) readdir: %w", ErrDirectoryNotOpen))
	}

	entry, err, ok := s.dir.next()
	if !ok {
		return backend.Entry{}, io.EOF
	}
	if err != nil {
		return backend.Entry{}, s.fail("readdir", backendError("readdir", err))
	}

	return entry, nil
}

// ReadDir returns the storage path of the next entry, relative to the
// storage root and without the scheme, or [io.EOF] once all were returned.
func (s *Session) ReadDir() (string, error) {
	entry, err := s.ReadDirEntry()
	if err != nil {
		return "", err
	}

	return entry.Path, nil
}

// RewindDir discards the listing and requests a fresh one.
func (s *Session) RewindDir() error {
	if err := s.checkOpen("rewinddir"); err != nil {
		return err
	}
	if s.dir == nil {
		return s.fail("rewinddir", fmt.Errorf("(stream) rewinddir: %w", ErrDirectoryNotOpen))
	}

	s.dir.stop()
	s.dir = s.list()

	return nil
}

// CloseDir ends the iteration and closes the session.
func (s *Session) CloseDir() error {
	if err := s.checkOpen("closedir"); err != nil {
		return err
	}
	if s.dir == nil {
		return s.fail("closedir", fmt.Errorf("(stream) closedir: %w", ErrDirectoryNotOpen))
	}

	return s.Close()
}
