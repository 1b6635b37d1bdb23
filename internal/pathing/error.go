package pathing

import "errors"

var (
	// ErrNoScheme is an error that occurs when a path carries no
	// "scheme://" prefix.
	ErrNoScheme = errors.New("path has no scheme")

	// ErrPathTraversal is an error that occurs when a path escapes its root
	// through ".." segments.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrCorruptedPath is an error that occurs when a path contains control
	// or other invisible characters.
	ErrCorruptedPath = errors.New("corrupted path detected")
)
