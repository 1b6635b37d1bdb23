// Package buffer accumulates the bytes written through a stream session
// until they are committed to storage in a single streaming write.
package buffer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/elazar/flystream/internal/backend"
	"github.com/spf13/afero"
	"github.com/spf13/afero/mem"
)

// Committer receives the accumulated content on flush. Every
// [backend.Filesystem] is a Committer.
type Committer interface {
	WriteStream(ctx context.Context, path string, r io.Reader, opts backend.Options) error
}

// Buffer is a write accumulator. Writes append in order, a flush commits
// everything written so far, and a buffer may be flushed repeatedly.
type Buffer interface {
	io.Writer
	Flush(ctx context.Context, dst Committer, path string, opts backend.Options) error
	Len() int64
	Close() error
}

// region is the backing store shared by the buffer strategies. It is
// created on the first non-empty write.
type region struct {
	file afero.File
	size int64
}

func newMemoryFile() afero.File {
	return mem.NewFileHandle(mem.CreateFile("flystream-buffer"))
}

func (r *region) append(p []byte) (int, error) {
	if _, err := r.file.Seek(0, io.SeekEnd); err != nil {
		return 0, fmt.Errorf("(buffer) failed to seek: %w", err)
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("(buffer) %w: %w", ErrWrite, err)
	}

	return n, nil
}

// Rewind returns the backing file positioned at its start. A buffer that
// was never written to yields an empty in-memory file.
func (r *region) Rewind() (afero.File, error) {
	if r.file == nil {
		r.file = newMemoryFile()
	}

	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("(buffer) failed to rewind: %w", err)
	}

	return r.file, nil
}

func (r *region) flush(ctx context.Context, dst Committer, path string, opts backend.Options) error {
	if r.file == nil {
		return dst.WriteStream(ctx, path, strings.NewReader(""), opts)
	}

	file, err := r.Rewind()
	if err != nil {
		return err
	}

	// Only the reader side is exposed so committers cannot close or
	// reposition the backing file.
	return dst.WriteStream(ctx, path, struct{ io.Reader }{file}, opts)
}

func (r *region) Len() int64 {
	return r.size
}

func (r *region) close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil

	return err
}
