package buffer

import (
	"context"

	"github.com/elazar/flystream/internal/backend"
)

var _ Buffer = (*Memory)(nil)

// Memory is a [Buffer] that keeps all content in memory.
type Memory struct {
	region
}

// NewMemory returns a pointer to a new [Memory] buffer.
func NewMemory() *Memory {
	return &Memory{}
}

func (b *Memory) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.file == nil {
		b.file = newMemoryFile()
	}

	return b.append(p)
}

func (b *Memory) Flush(ctx context.Context, dst Committer, path string, opts backend.Options) error {
	return b.flush(ctx, dst, path, opts)
}

func (b *Memory) Close() error {
	return b.close()
}
