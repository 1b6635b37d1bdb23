// Package aferofs implements [backend.Filesystem] on top of an [afero.Fs],
// covering both in-memory and local disk storage.
package aferofs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/elazar/flystream/internal/backend"
	"github.com/spf13/afero"
)

var _ backend.Filesystem = (*Filesystem)(nil)

// Filesystem is a [backend.Filesystem] storing its files in an [afero.Fs].
type Filesystem struct {
	fs         afero.Fs
	visibility *backend.VisibilityConverter
}

// New returns a [Filesystem] over the given [afero.Fs].
func New(base afero.Fs, converter *backend.VisibilityConverter) *Filesystem {
	if converter == nil {
		converter = backend.NewPortableVisibilityConverter()
	}

	return &Filesystem{
		fs:         base,
		visibility: converter,
	}
}

// NewMemory returns a [Filesystem] that keeps everything in memory.
func NewMemory() *Filesystem {
	return New(afero.NewMemMapFs(), nil)
}

// NewLocal returns a [Filesystem] rooted at the given local directory.
func NewLocal(root string) *Filesystem {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), nil)
}

// Fs returns the underlying [afero.Fs].
func (f *Filesystem) Fs() afero.Fs {
	return f.fs
}

func (f *Filesystem) Read(ctx context.Context, path string) ([]byte, error) {
	r, err := f.ReadStream(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(&contextReader{ctx: ctx, reader: r})
	if err != nil {
		return nil, fmt.Errorf("(aferofs) failed to read %s: %w", path, err)
	}

	return data, nil
}

func (f *Filesystem) ReadStream(_ context.Context, path string) (io.ReadCloser, error) {
	name := location(path)

	info, err := f.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("(aferofs) %w: %s", backend.ErrIsDirectory, path)
	}

	file, err := f.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("(aferofs) failed to open %s: %w", path, err)
	}

	return file, nil
}

func (f *Filesystem) Write(ctx context.Context, path string, data []byte, opts backend.Options) error {
	return f.WriteStream(ctx, path, bytes.NewReader(data), opts)
}

func (f *Filesystem) WriteStream(ctx context.Context, path string, r io.Reader, opts backend.Options) error {
	name := location(path)
	perm := f.visibility.ForFile(opts.Visibility(backend.OptionVisibility, backend.VisibilityPublic))

	if err := f.ensureParent(name, opts); err != nil {
		return err
	}

	file, err := f.fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("(aferofs) failed to open %s for writing: %w", path, err)
	}

	if _, err := io.Copy(file, &contextReader{ctx: ctx, reader: r}); err != nil {
		file.Close()

		return fmt.Errorf("(aferofs) failed to write %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("(aferofs) failed to close %s: %w", path, err)
	}

	// OpenFile leaves the permissions of an existing file untouched.
	if err := f.fs.Chmod(name, perm); err != nil {
		return fmt.Errorf("(aferofs) failed to apply visibility to %s: %w", path, err)
	}

	return nil
}

func (f *Filesystem) Delete(_ context.Context, path string) error {
	name := location(path)

	info, err := f.fs.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("(aferofs) %w: %s", backend.ErrIsDirectory, path)
	}

	if err := f.fs.Remove(name); err != nil {
		return fmt.Errorf("(aferofs) failed to delete %s: %w", path, err)
	}

	return nil
}

func (f *Filesystem) Move(_ context.Context, src string, dst string, opts backend.Options) error {
	srcName, dstName := location(src), location(dst)

	info, err := f.fs.Stat(srcName)
	if err != nil {
		return fmt.Errorf("(aferofs) failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("(aferofs) %w: %s", backend.ErrIsDirectory, src)
	}

	if err := f.ensureParent(dstName, opts); err != nil {
		return err
	}

	if err := f.fs.Rename(srcName, dstName); err != nil {
		return fmt.Errorf("(aferofs) failed to move %s to %s: %w", src, dst, err)
	}

	return nil
}

func (f *Filesystem) CreateDirectory(_ context.Context, path string, opts backend.Options) error {
	perm := f.visibility.ForDirectory(
		opts.Visibility(backend.OptionDirectoryVisibility, f.visibility.DirectoryDefault),
	)

	if err := f.fs.MkdirAll(location(path), perm); err != nil {
		return fmt.Errorf("(aferofs) failed to create directory %s: %w", path, err)
	}

	return nil
}

func (f *Filesystem) DeleteDirectory(_ context.Context, path string) error {
	name := location(path)
	if name == string(filepath.Separator) {
		return fmt.Errorf("(aferofs) %w: refusing to delete the root", ErrRootDirectory)
	}

	if err := f.fs.RemoveAll(name); err != nil {
		return fmt.Errorf("(aferofs) failed to delete directory %s: %w", path, err)
	}

	return nil
}

func (f *Filesystem) FileExists(_ context.Context, path string) (bool, error) {
	info, err := f.fs.Stat(location(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}

	return !info.IsDir(), nil
}

func (f *Filesystem) DirectoryExists(_ context.Context, path string) (bool, error) {
	info, err := f.fs.Stat(location(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}

	return info.IsDir(), nil
}

func (f *Filesystem) ListContents(_ context.Context, path string, recursive bool) iter.Seq2[backend.Entry, error] {
	return func(yield func(backend.Entry, error) bool) {
		root := location(path)

		info, err := f.fs.Stat(root)
		if errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()) {
			return
		} else if err != nil {
			yield(backend.Entry{}, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err))

			return
		}

		if !recursive {
			infos, err := afero.ReadDir(f.fs, root)
			if err != nil {
				yield(backend.Entry{}, fmt.Errorf("(aferofs) failed to read directory %s: %w", path, err))

				return
			}
			for _, info := range infos {
				if !yield(entryFor(filepath.Join(root, info.Name()), info), nil) {
					return
				}
			}

			return
		}

		err = afero.Walk(f.fs, root, func(name string, info fs.FileInfo, err error) error {
			if err != nil {
				if !yield(backend.Entry{}, fmt.Errorf("(aferofs) failed to walk %s: %w", name, err)) {
					return errStopWalk
				}

				return nil
			}
			if name == root {
				return nil
			}
			if !yield(entryFor(name, info), nil) {
				return errStopWalk
			}

			return nil
		})
		if err != nil && !errors.Is(err, errStopWalk) {
			yield(backend.Entry{}, fmt.Errorf("(aferofs) failed to walk %s: %w", path, err))
		}
	}
}

func (f *Filesystem) FileSize(_ context.Context, path string) (int64, error) {
	info, err := f.fs.Stat(location(path))
	if err != nil {
		return 0, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("(aferofs) %w: %s", backend.ErrIsDirectory, path)
	}

	return info.Size(), nil
}

func (f *Filesystem) LastModified(_ context.Context, path string) (int64, error) {
	info, err := f.fs.Stat(location(path))
	if err != nil {
		return 0, fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}

	return info.ModTime().Unix(), nil
}

func (f *Filesystem) Visibility(_ context.Context, path string) (backend.Visibility, error) {
	info, err := f.fs.Stat(location(path))
	if err != nil {
		return "", fmt.Errorf("(aferofs) failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return f.visibility.InverseForDirectory(info.Mode()), nil
	}

	return f.visibility.InverseForFile(info.Mode()), nil
}

func (f *Filesystem) ensureParent(name string, opts backend.Options) error {
	perm := f.visibility.ForDirectory(
		opts.Visibility(backend.OptionDirectoryVisibility, f.visibility.DirectoryDefault),
	)

	if err := f.fs.MkdirAll(filepath.Dir(name), perm); err != nil {
		return fmt.Errorf("(aferofs) failed to create parent of %s: %w", name, err)
	}

	return nil
}

// location maps a normalized storage path to an absolute [afero.Fs] name.
func location(path string) string {
	return filepath.Join(string(filepath.Separator), filepath.FromSlash(path))
}

func entryFor(name string, info fs.FileInfo) backend.Entry {
	rel := strings.TrimPrefix(filepath.ToSlash(name), "/")

	entry := backend.Entry{
		Path:         rel,
		IsDir:        info.IsDir(),
		LastModified: info.ModTime().Unix(),
	}
	if !info.IsDir() {
		entry.Size = info.Size()
	}

	return entry
}
