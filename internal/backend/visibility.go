package backend

import "io/fs"

// Visibility is the portable access level of a stored file or directory.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// VisibilityConverter maps between [Visibility] values and Unix permission
// bits, separately for files and directories.
type VisibilityConverter struct {
	FilePublic       fs.FileMode
	FilePrivate      fs.FileMode
	DirectoryPublic  fs.FileMode
	DirectoryPrivate fs.FileMode
	DirectoryDefault Visibility
}

// NewPortableVisibilityConverter returns a [VisibilityConverter] using the
// conventional 0644/0600 file and 0755/0700 directory permissions.
func NewPortableVisibilityConverter() *VisibilityConverter {
	return &VisibilityConverter{
		FilePublic:       0o644, //nolint:mnd
		FilePrivate:      0o600, //nolint:mnd
		DirectoryPublic:  0o755, //nolint:mnd
		DirectoryPrivate: 0o700, //nolint:mnd
		DirectoryDefault: VisibilityPublic,
	}
}

func (c *VisibilityConverter) ForFile(v Visibility) fs.FileMode {
	if v == VisibilityPrivate {
		return c.FilePrivate
	}

	return c.FilePublic
}

func (c *VisibilityConverter) ForDirectory(v Visibility) fs.FileMode {
	if v == VisibilityPrivate {
		return c.DirectoryPrivate
	}

	return c.DirectoryPublic
}

// InverseForFile returns the [Visibility] matching the permission bits of a
// file, falling back to public for unrecognized modes.
func (c *VisibilityConverter) InverseForFile(mode fs.FileMode) Visibility {
	if mode.Perm() == c.FilePrivate {
		return VisibilityPrivate
	}

	return VisibilityPublic
}

// InverseForDirectory returns the [Visibility] matching the permission bits
// of a directory, falling back to public for unrecognized modes.
func (c *VisibilityConverter) InverseForDirectory(mode fs.FileMode) Visibility {
	if mode.Perm() == c.DirectoryPrivate {
		return VisibilityPrivate
	}

	return VisibilityPublic
}

// DefaultForDirectories returns the permissions used for directories that
// were created without an explicit visibility.
func (c *VisibilityConverter) DefaultForDirectories() fs.FileMode {
	return c.ForDirectory(c.DirectoryDefault)
}
