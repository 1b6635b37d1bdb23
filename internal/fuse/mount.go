// Package fuse mounts the storage registered for a scheme as a FUSE
// filesystem, so unmodified programs drive stream sessions through open,
// read, write, flock and readdir.
//
// Every open file handle wraps one session. Writes must arrive in order
// and replace the whole file when the handle is flushed. Appending in place
// and writing at arbitrary offsets are refused.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/elazar/flystream/internal/pathing"
	"github.com/elazar/flystream/internal/stream"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted. It is
	// created if it does not exist.
	Mountpoint string

	// Scheme selects the storage that is mounted.
	Scheme string

	// Handler opens the sessions backing file handles.
	Handler *stream.Handler

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// mount is the state shared by all nodes of one mounted filesystem.
type mount struct {
	ctx     context.Context //nolint:containedctx
	handler *stream.Handler
	scheme  string
	logger  *slog.Logger
	uid     uint32
	gid     uint32
}

// Mount mounts the storage behind options.Scheme at options.Mountpoint.
// Sessions opened by file handles live as long as ctx. The caller must
// call Unmount on the returned server when done.
func Mount(ctx context.Context, options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("(fuse) %w", ErrNoMountpoint)
	}
	if options.Handler == nil {
		return nil, fmt.Errorf("(fuse) %w", ErrNoHandler)
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	if _, err := options.Handler.URLStat(ctx, pathing.Join(options.Scheme, "")); err != nil {
		return nil, fmt.Errorf("(fuse) failed to resolve scheme %q: %w", options.Scheme, err)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("(fuse) failed to create mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{mount: &mount{
		ctx:     ctx,
		handler: options.Handler,
		scheme:  options.Scheme,
		logger:  options.Logger,
		uid:     uint32(os.Getuid()), //nolint:gosec
		gid:     uint32(os.Getgid()), //nolint:gosec
	}}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:      "flystream-" + options.Scheme,
			Name:        "flystream",
			AllowOther:  options.AllowOther,
			EnableLocks: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("(fuse) failed to mount at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("Filesystem mounted", "mountpoint", options.Mountpoint, "scheme", options.Scheme)

	return server, nil
}

// fillAttr copies a session stat result into FUSE attributes.
func (m *mount) fillAttr(st stream.StatResult, out *fuse.Attr) {
	out.Mode = st.Mode
	out.Nlink = 1
	out.Size = uint64(max(st.Size, 0))
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = 4096
	out.Mtime = uint64(max(st.Mtime, 0))
	out.Atime = out.Mtime
	out.Ctime = out.Mtime
	out.Uid = m.uid
	out.Gid = m.gid
}

// isNotExist reports whether err is the answer for an absent path, which
// the kernel asks about constantly and is not worth logging.
func isNotExist(err error) bool {
	return errors.Is(err, stream.ErrNotExist)
}
