package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/elazar/flystream/internal/backend"
	"golang.org/x/sys/unix"
)

func (h *Handler) fail(op, path string, err error) error {
	h.logger.Error("Path operation failed", "op", op, "path", path, "err", err)

	return err
}

// Mkdir creates the directory at path. Its visibility is derived from the
// permission bits of perm.
func (h *Handler) Mkdir(ctx context.Context, path string, perm fs.FileMode) error {
	t, err := h.resolve(path)
	if err != nil {
		return h.fail("mkdir", path, err)
	}

	opts := h.options(t.scheme, backend.Options{
		backend.OptionDirectoryVisibility: h.visibility.InverseForDirectory(perm),
	})

	if err := t.fs.CreateDirectory(ctx, t.path, opts); err != nil {
		return h.fail("mkdir", path, backendError("mkdir", err))
	}

	return nil
}

// Rmdir removes the directory at path along with its contents.
func (h *Handler) Rmdir(ctx context.Context, path string) error {
	t, err := h.resolve(path)
	if err != nil {
		return h.fail("rmdir", path, err)
	}

	if err := t.fs.DeleteDirectory(ctx, t.path); err != nil {
		return h.fail("rmdir", path, backendError("rmdir", err))
	}

	return nil
}

// Unlink removes the file at path.
func (h *Handler) Unlink(ctx context.Context, path string) error {
	t, err := h.resolve(path)
	if err != nil {
		return h.fail("unlink", path, err)
	}

	if err := t.fs.Delete(ctx, t.path); err != nil {
		return h.fail("unlink", path, backendError("unlink", err))
	}

	return nil
}

// Rename moves the file at from to to. Both must share a scheme.
func (h *Handler) Rename(ctx context.Context, from, to string) error {
	src, err := h.resolve(from)
	if err != nil {
		return h.fail("rename", from, err)
	}

	dst, err := h.resolve(to)
	if err != nil {
		return h.fail("rename", to, err)
	}

	if src.scheme != dst.scheme {
		return h.fail("rename", from, fmt.Errorf("(stream) rename: %w: %s to %s", ErrCrossScheme, src.scheme, dst.scheme))
	}

	if err := src.fs.Move(ctx, src.path, dst.path, h.options(dst.scheme)); err != nil {
		return h.fail("rename", from, backendError("rename", err))
	}

	return nil
}

// Touch creates an empty file at path unless a file already exists there.
func (h *Handler) Touch(ctx context.Context, path string) error {
	t, err := h.resolve(path)
	if err != nil {
		return h.fail("touch", path, err)
	}

	exists, err := t.fs.FileExists(ctx, t.path)
	if err != nil {
		return h.fail("touch", path, backendError("touch", err))
	}
	if exists {
		return nil
	}

	if err := t.fs.Write(ctx, t.path, nil, h.options(t.scheme)); err != nil {
		return h.fail("touch", path, backendError("touch", err))
	}

	return nil
}

// Chmod always fails with [ErrUnsupported].
func (h *Handler) Chmod(_ context.Context, path string, _ fs.FileMode) error {
	return h.fail("chmod", path, fmt.Errorf("(stream) chmod: %w", ErrUnsupported))
}

// Chown always fails with [ErrUnsupported].
func (h *Handler) Chown(_ context.Context, path string, _ int) error {
	return h.fail("chown", path, fmt.Errorf("(stream) chown: %w", ErrUnsupported))
}

// Chgrp always fails with [ErrUnsupported].
func (h *Handler) Chgrp(_ context.Context, path string, _ int) error {
	return h.fail("chgrp", path, fmt.Errorf("(stream) chgrp: %w", ErrUnsupported))
}

// URLStat describes the file or directory at path. It fails with an error
// matching [ErrNotExist] when neither exists.
func (h *Handler) URLStat(ctx context.Context, path string) (StatResult, error) {
	t, err := h.resolve(path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, err)
	}

	isFile, err := t.fs.FileExists(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("url_stat", err))
	}

	if isFile {
		return h.statFile(ctx, path, t)
	}

	isDir, err := h.directoryExists(ctx, t)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("url_stat", err))
	}
	if !isDir {
		// Absence is an expected answer and is not logged as a failure.
		return StatResult{}, fmt.Errorf("(stream) url_stat: %w: %s", ErrNotExist, path)
	}

	return h.statDirectory(ctx, path, t)
}

func (h *Handler) statFile(ctx context.Context, path string, t target) (StatResult, error) {
	vis, err := t.fs.Visibility(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("visibility", err))
	}

	size, err := t.fs.FileSize(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("file_size", err))
	}

	mtime, err := t.fs.LastModified(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("last_modified", err))
	}

	return StatResult{
		Mode:  unix.S_IFREG | uint32(h.visibility.ForFile(vis)),
		Size:  size,
		Mtime: mtime,
	}, nil
}

func (h *Handler) statDirectory(ctx context.Context, path string, t target) (StatResult, error) {
	st := StatResult{
		Mode: unix.S_IFDIR | uint32(h.visibility.DefaultForDirectories()),
	}

	if t.path == "" {
		return st, nil
	}

	vis, err := t.fs.Visibility(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("visibility", err))
	}

	mtime, err := t.fs.LastModified(ctx, t.path)
	if err != nil {
		return StatResult{}, h.fail("url_stat", path, backendError("last_modified", err))
	}

	st.Mode = unix.S_IFDIR | uint32(h.visibility.ForDirectory(vis))
	st.Mtime = mtime

	return st, nil
}

// directoryExists asks storage directly, falling back to searching the
// parent listing when storage cannot answer.
func (h *Handler) directoryExists(ctx context.Context, t target) (bool, error) {
	if t.path == "" {
		return true, nil
	}

	exists, err := t.fs.DirectoryExists(ctx, t.path)
	if !errors.Is(err, backend.ErrUnsupportedOperation) {
		return exists, err
	}

	parent := path.Dir(t.path)
	if parent == "." {
		parent = ""
	}

	for entry, err := range t.fs.ListContents(ctx, parent, false) {
		if err != nil {
			return false, err
		}
		if entry.IsDir && entry.Path == t.path {
			return true, nil
		}
	}

	return false, nil
}

// ReadFile returns the full content of the file at path.
func (h *Handler) ReadFile(ctx context.Context, path string) ([]byte, error) {
	s := h.Open(ctx, path, ModeRead)
	defer s.Close()

	return io.ReadAll(s)
}

// WriteFile replaces the content of the file at path with data. Empty data
// leaves an empty file.
func (h *Handler) WriteFile(ctx context.Context, path string, data []byte, opts ...SessionOption) error {
	s := h.Open(ctx, path, ModeWrite, opts...)

	if len(data) == 0 {
		if err := s.commitEmpty(); err != nil {
			s.Close()

			return err
		}

		return s.Close()
	}

	if _, err := s.Write(data); err != nil {
		s.Close()

		return err
	}

	if err := s.Flush(); err != nil {
		s.Close()

		return err
	}

	return s.Close()
}

// OpenDir returns a session iterating the entries directly below path.
func (h *Handler) OpenDir(ctx context.Context, path string) (*Session, error) {
	s := h.Open(ctx, path, ModeRead)

	if err := s.OpenDir(); err != nil {
		s.Close()

		return nil, err
	}

	return s, nil
}
