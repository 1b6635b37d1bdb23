package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/elazar/flystream/internal/stream"
	"github.com/spf13/afero"
)

// isStreamPath reports whether p addresses registered storage rather than
// the local filesystem.
func isStreamPath(p string) bool {
	return strings.Contains(p, "://")
}

// Copy copies src to dst. Either side may be a local path or a
// "scheme://path" on registered storage.
func (a *App) Copy(ctx context.Context, local afero.Fs, src, dst string) (int64, error) {
	r, err := a.openSource(ctx, local, src)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	w, err := a.openDestination(ctx, local, dst)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(w, r)
	if err != nil {
		return n, errors.Join(fmt.Errorf("failed to copy %s to %s: %w", src, dst, err), w.Close())
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("failed to commit %s: %w", dst, err)
	}

	// A session that saw no writes commits nothing on close.
	if n == 0 && isStreamPath(dst) {
		if err := a.handler.WriteFile(ctx, dst, nil); err != nil {
			return n, fmt.Errorf("failed to commit %s: %w", dst, err)
		}
	}

	slog.Info("Copied", "src", src, "dst", dst, "size", humanize.IBytes(uint64(n))) //nolint:gosec

	return n, nil
}

func (a *App) openSource(ctx context.Context, local afero.Fs, src string) (io.ReadCloser, error) {
	if !isStreamPath(src) {
		f, err := local.Open(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", src, err)
		}

		return f, nil
	}

	st, err := a.handler.URLStat(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("failed to open %s: %w", src, errIsDirectory)
	}

	return a.handler.Open(ctx, src, stream.ModeRead), nil
}

func (a *App) openDestination(ctx context.Context, local afero.Fs, dst string) (io.WriteCloser, error) {
	if !isStreamPath(dst) {
		f, err := local.Create(dst)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dst, err)
		}

		return f, nil
	}

	return a.handler.Open(ctx, dst, stream.ModeWrite), nil
}
