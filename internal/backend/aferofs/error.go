package aferofs

import "errors"

var (
	// ErrHashMismatch is an error that occurs when the checksums of a copy
	// source and its destination differ.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrRootDirectory is an error that occurs on an attempt to delete the
	// root directory of the storage.
	ErrRootDirectory = errors.New("root directory")

	errStopWalk = errors.New("walk stopped")
)
