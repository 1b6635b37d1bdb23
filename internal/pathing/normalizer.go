package pathing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Normalizer turns a path into the form handed to storage adapters.
type Normalizer interface {
	NormalizePath(path string) (string, error)
}

// StripProtocol removes a leading "scheme:/" prefix, keeping a single
// slash, and passes the remainder on to a delegate [Normalizer].
type StripProtocol struct {
	pattern  *regexp.Regexp
	delegate Normalizer
}

// NewStripProtocol returns a [StripProtocol] that strips only the given
// protocols, or any protocol when none are given. A nil delegate defaults
// to [Whitespace].
func NewStripProtocol(protocols []string, delegate Normalizer) *StripProtocol {
	pattern := `^[^:/]+:/+`
	if len(protocols) > 0 {
		quoted := make([]string, len(protocols))
		for i, p := range protocols {
			quoted[i] = regexp.QuoteMeta(p)
		}
		pattern = `^(?:` + strings.Join(quoted, "|") + `):/+`
	}

	if delegate == nil {
		delegate = Whitespace{}
	}

	return &StripProtocol{
		pattern:  regexp.MustCompile(pattern),
		delegate: delegate,
	}
}

func (n *StripProtocol) NormalizePath(path string) (string, error) {
	return n.delegate.NormalizePath(n.pattern.ReplaceAllLiteralString(path, "/"))
}

// Whitespace converts backslashes, drops empty and "." segments, resolves
// ".." segments and rejects invisible characters. The result carries no
// leading or trailing slash.
type Whitespace struct{}

func (Whitespace) NormalizePath(path string) (string, error) {
	path = strings.ReplaceAll(path, `\`, "/")

	if strings.IndexFunc(path, func(r rune) bool { return unicode.Is(unicode.C, r) }) >= 0 {
		return "", fmt.Errorf("(pathing) %w: %q", ErrCorruptedPath, path)
	}

	parts := make([]string, 0, strings.Count(path, "/")+1)
	for part := range strings.SplitSeq(path, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(parts) == 0 {
				return "", fmt.Errorf("(pathing) %w: %s", ErrPathTraversal, path)
			}
			parts = parts[:len(parts)-1]
		default:
			parts = append(parts, part)
		}
	}

	return strings.Join(parts, "/"), nil
}

// PassThru returns paths unchanged.
type PassThru struct{}

func (PassThru) NormalizePath(path string) (string, error) {
	return path, nil
}
