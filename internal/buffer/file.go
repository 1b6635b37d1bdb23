package buffer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/elazar/flystream/internal/backend"
	"github.com/spf13/afero"
)

const tempPattern = "flystream-buffer-*"

var _ Buffer = (*File)(nil)

// File is a [Buffer] that keeps all content in a temporary file, created
// on the first write and removed on close.
type File struct {
	region
	fs  afero.Fs
	dir string
}

// NewFile returns a pointer to a new [File] buffer creating its temporary
// file in dir of fsys. A nil fsys selects the operating system, an empty
// dir its default temporary directory.
func NewFile(fsys afero.Fs, dir string) *File {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &File{
		fs:  fsys,
		dir: dir,
	}
}

func (b *File) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if b.file == nil {
		file, err := afero.TempFile(b.fs, b.dir, tempPattern)
		if err != nil {
			return 0, fmt.Errorf("(buffer) %w: %w", ErrTempFile, err)
		}
		b.file = file
	}

	return b.append(p)
}

func (b *File) Flush(ctx context.Context, dst Committer, path string, opts backend.Options) error {
	return b.flush(ctx, dst, path, opts)
}

func (b *File) Close() error {
	return closeTemp(b.fs, &b.region)
}

// closeTemp closes the backing file of r and removes it from fsys.
func closeTemp(fsys afero.Fs, r *region) error {
	if r.file == nil {
		return nil
	}

	name := r.file.Name()
	if err := r.close(); err != nil {
		return fmt.Errorf("(buffer) failed to close temporary file: %w", err)
	}

	if err := fsys.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("(buffer) failed to remove temporary file: %w", err)
	}

	return nil
}
