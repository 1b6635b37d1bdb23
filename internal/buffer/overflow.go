package buffer

import (
	"context"
	"fmt"
	"io"

	"github.com/elazar/flystream/internal/backend"
	"github.com/spf13/afero"
)

// DefaultMaxMemory is the in-memory threshold of an [Overflow] buffer.
const DefaultMaxMemory = 2 * 1024 * 1024

var _ Buffer = (*Overflow)(nil)

// Overflow is a [Buffer] that holds content in memory until it grows past
// a threshold, then moves it to a temporary file.
type Overflow struct {
	region
	maxMemory int64
	fs        afero.Fs
	dir       string
	spilled   bool
}

// NewOverflow returns a pointer to a new [Overflow] buffer. A threshold of
// zero or less selects [DefaultMaxMemory]. fsys and dir are as for
// [NewFile].
func NewOverflow(maxMemory int64, fsys afero.Fs, dir string) *Overflow {
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &Overflow{
		maxMemory: maxMemory,
		fs:        fsys,
		dir:       dir,
	}
}

// SetMaxMemory changes the threshold. It has no effect once the content
// has moved to a temporary file.
func (b *Overflow) SetMaxMemory(maxMemory int64) {
	b.maxMemory = maxMemory
}

// Spilled reports whether the content has moved to a temporary file.
func (b *Overflow) Spilled() bool {
	return b.spilled
}

func (b *Overflow) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.file == nil {
		b.file = newMemoryFile()
	}

	if !b.spilled && b.size+int64(len(p)) > b.maxMemory {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	return b.append(p)
}

// spill copies the in-memory content to a temporary file. On failure the
// content stays in memory.
func (b *Overflow) spill() error {
	tmp, err := afero.TempFile(b.fs, b.dir, tempPattern)
	if err != nil {
		return fmt.Errorf("(buffer) %w: %w", ErrTempFile, err)
	}

	if _, err := b.file.Seek(0, io.SeekStart); err == nil {
		_, err = io.Copy(tmp, b.file)
	}
	if err != nil {
		tmp.Close()
		b.fs.Remove(tmp.Name()) //nolint:errcheck

		return fmt.Errorf("(buffer) %w: %w", ErrTempFile, err)
	}

	b.file.Close()
	b.file = tmp
	b.spilled = true

	return nil
}

func (b *Overflow) Flush(ctx context.Context, dst Committer, path string, opts backend.Options) error {
	return b.flush(ctx, dst, path, opts)
}

func (b *Overflow) Close() error {
	if b.spilled {
		b.spilled = false

		return closeTemp(b.fs, &b.region)
	}

	return b.close()
}
