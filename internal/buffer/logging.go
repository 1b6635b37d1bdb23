package buffer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/elazar/flystream/internal/backend"
)

var bufferIDs atomic.Uint64

var _ Buffer = (*Logging)(nil)

// Logging is a [Buffer] decorator that logs every call to the wrapped
// buffer before and after it happens.
type Logging struct {
	buffer Buffer
	logger *slog.Logger
	id     uint64
	kind   string
}

// NewLogging wraps b so its calls are logged to logger.
func NewLogging(b Buffer, logger *slog.Logger) *Logging {
	return &Logging{
		buffer: b,
		logger: logger,
		id:     bufferIDs.Add(1),
		kind:   fmt.Sprintf("%T", b),
	}
}

func (b *Logging) log(msg string, args ...any) {
	b.logger.Info(msg, append([]any{"buffer", b.kind, "buffer_id", b.id}, args...)...)
}

func (b *Logging) Write(p []byte) (int, error) {
	b.log("Buffer write", "when", "before", "size", humanize.IBytes(uint64(len(p))))

	n, err := b.buffer.Write(p)

	b.log("Buffer write", "when", "after", "written", n, "err", err)

	return n, err
}

func (b *Logging) Flush(ctx context.Context, dst Committer, path string, opts backend.Options) error {
	b.log("Buffer flush", "when", "before", "path", path, "size", humanize.IBytes(uint64(b.buffer.Len()))) //nolint:gosec

	err := b.buffer.Flush(ctx, dst, path, opts)

	b.log("Buffer flush", "when", "after", "path", path, "err", err)

	return err
}

func (b *Logging) Len() int64 {
	return b.buffer.Len()
}

func (b *Logging) Close() error {
	b.log("Buffer close", "when", "before")

	err := b.buffer.Close()

	b.log("Buffer close", "when", "after", "err", err)

	return err
}
