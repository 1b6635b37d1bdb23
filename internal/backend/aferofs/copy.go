package aferofs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/elazar/flystream/internal/backend"
	"github.com/zeebo/blake3"
)

type contextReader struct {
	ctx    context.Context //nolint:containedctx
	reader io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
		return cr.reader.Read(p)
	}
}

// Copy duplicates src to dst through an intermediate file, comparing
// checksums of both sides before the intermediate is renamed into place.
func (f *Filesystem) Copy(ctx context.Context, src string, dst string, opts backend.Options) error {
	var transferComplete bool

	srcName, dstName := location(src), location(dst)

	info, err := f.fs.Stat(srcName)
	if err != nil {
		return fmt.Errorf("(aferofs) failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("(aferofs) %w: %s", backend.ErrIsDirectory, src)
	}

	srcFile, err := f.fs.Open(srcName)
	if err != nil {
		return fmt.Errorf("(aferofs) failed to open source file: %w", err)
	}
	defer srcFile.Close()

	if err := f.ensureParent(dstName, opts); err != nil {
		return err
	}

	perm := f.visibility.ForFile(opts.Visibility(backend.OptionVisibility, f.visibility.InverseForFile(info.Mode())))

	tmpName := dstName + ".flystream"
	defer func() {
		if !transferComplete {
			f.fs.Remove(tmpName) //nolint:errcheck
		}
	}()

	dstFile, err := f.fs.OpenFile(tmpName, os.O_CREATE|os.O_WRONLY|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("(aferofs) failed to open destination file %s: %w", tmpName, err)
	}
	defer dstFile.Close()

	srcHasher := blake3.New()
	dstHasher := blake3.New()

	ctxReader := &contextReader{
		ctx:    ctx,
		reader: io.TeeReader(srcFile, srcHasher),
	}
	multiWriter := io.MultiWriter(dstFile, dstHasher)

	if _, err := io.Copy(multiWriter, ctxReader); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("(aferofs) copy canceled: %w", err)
		}

		return fmt.Errorf("(aferofs) failed to copy file: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("(aferofs) failed to sync destination: %w", err)
	}

	srcChecksum := hex.EncodeToString(srcHasher.Sum(nil))
	dstChecksum := hex.EncodeToString(dstHasher.Sum(nil))

	if srcChecksum != dstChecksum {
		return fmt.Errorf("(aferofs) %w: %s (src) != %s (dst)", ErrHashMismatch, srcChecksum, dstChecksum)
	}

	if err := dstFile.Close(); err != nil {
		return fmt.Errorf("(aferofs) failed to close destination: %w", err)
	}

	if err := f.fs.Rename(tmpName, dstName); err != nil {
		return fmt.Errorf("(aferofs) failed to rename temporary file to destination file: %w", err)
	}

	transferComplete = true

	return nil
}
