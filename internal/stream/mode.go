package stream

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// Mode is the access mode a session is opened with.
type Mode int

const (
	ModeRead Mode = iota + 1
	ModeWrite
	ModeReadWrite
)

func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// CanWrite reports whether a session opened with m accepts writes.
func (m Mode) CanWrite() bool {
	return m == ModeWrite || m == ModeReadWrite
}

// ParseMode parses an fopen-style mode string such as "r", "w+" or "rb".
func ParseMode(s string) (Mode, error) {
	trimmed := strings.NewReplacer("b", "", "t", "").Replace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("(stream) %w: %q", ErrInvalidMode, s)
	}

	plus := strings.HasSuffix(trimmed, "+")
	if plus {
		trimmed = strings.TrimSuffix(trimmed, "+")
	}

	switch trimmed {
	case "r":
		if plus {
			return ModeReadWrite, nil
		}

		return ModeRead, nil
	case "w", "a", "x", "c":
		if plus {
			return ModeReadWrite, nil
		}

		return ModeWrite, nil
	default:
		return 0, fmt.Errorf("(stream) %w: %q", ErrInvalidMode, s)
	}
}

// ModeFromFlags derives the [Mode] of open(2) style flags.
func ModeFromFlags(flags int) Mode {
	switch flags & unix.O_ACCMODE {
	case unix.O_WRONLY:
		return ModeWrite
	case unix.O_RDWR:
		return ModeReadWrite
	default:
		return ModeRead
	}
}
