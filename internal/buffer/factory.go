package buffer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// Kind names a buffer strategy.
type Kind string

const (
	KindMemory   Kind = "memory"
	KindFile     Kind = "file"
	KindOverflow Kind = "overflow"
)

// ParseKind returns the [Kind] named by s, ignoring case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMemory, KindFile, KindOverflow:
		return k, nil
	default:
		return "", fmt.Errorf("(buffer) %w: %q", ErrUnknownKind, s)
	}
}

// ParseSize parses a human-readable byte size such as "2 MiB" or "512k".
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("(buffer) failed to parse size %q: %w", s, err)
	}

	return int64(n), nil //nolint:gosec
}

// Factory creates a fresh [Buffer] of the configured strategy for every
// session that starts writing.
type Factory struct {
	Kind      Kind
	MaxMemory int64
	TempFs    afero.Fs
	TempDir   string

	// Logger, when set, wraps every buffer in a [Logging] decorator.
	Logger *slog.Logger
}

// New returns a new [Buffer]. An unset or unknown [Kind] yields a [Memory]
// buffer.
func (f *Factory) New() Buffer {
	var b Buffer

	switch f.Kind {
	case KindFile:
		b = NewFile(f.TempFs, f.TempDir)
	case KindOverflow:
		b = NewOverflow(f.MaxMemory, f.TempFs, f.TempDir)
	case KindMemory:
		b = NewMemory()
	default:
		b = NewMemory()
	}

	if f.Logger != nil {
		return NewLogging(b, f.Logger)
	}

	return b
}
