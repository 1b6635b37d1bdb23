package stream

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// StatResult is a POSIX-like stat structure. Storage has no notion of
// devices, inodes or owners, so only Mode, Size and Mtime are populated.
type StatResult struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Atime   int64
	Mtime   int64
	Ctime   int64
	Blksize int64
	Blocks  int64
}

func (s StatResult) IsDir() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFDIR
}

func (s StatResult) IsRegular() bool {
	return s.Mode&unix.S_IFMT == unix.S_IFREG
}

// Perm returns the permission bits of Mode.
func (s StatResult) Perm() fs.FileMode {
	return fs.FileMode(s.Mode).Perm()
}
