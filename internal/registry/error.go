package registry

import "errors"

var (
	// ErrSchemeRegistered is an error that occurs when a scheme is registered
	// that is already bound to a filesystem.
	ErrSchemeRegistered = errors.New("scheme is already registered")

	// ErrSchemeNotRegistered is an error that occurs when a scheme is
	// resolved or unregistered that is not bound to a filesystem.
	ErrSchemeNotRegistered = errors.New("scheme is not registered")

	// ErrInvalidScheme is an error that occurs when a scheme does not follow
	// the URI scheme grammar.
	ErrInvalidScheme = errors.New("invalid scheme")

	// ErrNilFilesystem is an error that occurs when a nil filesystem is
	// registered.
	ErrNilFilesystem = errors.New("nil filesystem")
)
