package main

import "errors"

var (
	// errUsage is an error that occurs when a command is invoked with the
	// wrong arguments.
	errUsage = errors.New("invalid usage")

	// errIsDirectory is an error that occurs when a directory is given
	// where a file is expected.
	errIsDirectory = errors.New("is a directory")
)
