// Package backend describes the storage contract that stream sessions
// operate against, along with the option and visibility conventions shared
// by every storage adapter.
package backend

import (
	"context"
	"io"
	"iter"
	"maps"
)

const (
	// OptionVisibility selects the [Visibility] of written files.
	OptionVisibility = "visibility"

	// OptionDirectoryVisibility selects the [Visibility] of created directories.
	OptionDirectoryVisibility = "directory_visibility"
)

// Filesystem is the storage abstraction a stream session reads from and
// commits to. Paths are normalized and relative to the filesystem root,
// using forward slashes and no leading separator.
type Filesystem interface {
	Read(ctx context.Context, path string) ([]byte, error)
	ReadStream(ctx context.Context, path string) (io.ReadCloser, error)
	Write(ctx context.Context, path string, data []byte, opts Options) error
	WriteStream(ctx context.Context, path string, r io.Reader, opts Options) error
	Delete(ctx context.Context, path string) error
	Move(ctx context.Context, src string, dst string, opts Options) error
	Copy(ctx context.Context, src string, dst string, opts Options) error
	CreateDirectory(ctx context.Context, path string, opts Options) error
	DeleteDirectory(ctx context.Context, path string) error
	FileExists(ctx context.Context, path string) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
	ListContents(ctx context.Context, path string, recursive bool) iter.Seq2[Entry, error]
	FileSize(ctx context.Context, path string) (int64, error)
	LastModified(ctx context.Context, path string) (int64, error)
	Visibility(ctx context.Context, path string) (Visibility, error)
}

// Entry is a single item produced by [Filesystem.ListContents].
type Entry struct {
	Path         string
	IsDir        bool
	Size         int64
	LastModified int64
}

// Options is a flat bag of write options passed through to the storage
// adapter, such as [OptionVisibility].
type Options map[string]any

// Merge returns a new [Options] holding the receiver's values overlaid
// with the given overrides. Neither input is modified.
func (o Options) Merge(overrides Options) Options {
	merged := make(Options, len(o)+len(overrides))
	maps.Copy(merged, o)
	maps.Copy(merged, overrides)

	return merged
}

// Visibility returns the [Visibility] stored under key, or def when the key
// is absent or not a recognized visibility.
func (o Options) Visibility(key string, def Visibility) Visibility {
	switch v := o[key].(type) {
	case Visibility:
		if v.Valid() {
			return v
		}
	case string:
		if vis := Visibility(v); vis.Valid() {
			return vis
		}
	}

	return def
}
