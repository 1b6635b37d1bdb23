// Package pathing splits scheme-qualified paths and normalizes them into the
// relative form storage adapters expect.
package pathing

import (
	"fmt"
	"strings"
)

const schemeSeparator = "://"

// Scheme returns the scheme of a "scheme://path" string.
func Scheme(path string) (string, error) {
	scheme, _, found := strings.Cut(path, schemeSeparator)
	if !found || scheme == "" {
		return "", fmt.Errorf("(pathing) %w: %s", ErrNoScheme, path)
	}

	return scheme, nil
}

// Join qualifies a storage path with scheme, yielding "scheme://path".
func Join(scheme, path string) string {
	return scheme + schemeSeparator + strings.TrimPrefix(path, "/")
}
