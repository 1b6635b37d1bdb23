package fuse

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"path"
	"syscall"

	"github.com/elazar/flystream/internal/pathing"
	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// node is a file or directory of the mounted storage. Its path is derived
// from its position in the inode tree, so renames carry over to children.
type node struct {
	gofuse.Inode
	mount *mount
}

var (
	_ gofuse.InodeEmbedder = (*node)(nil)
	_ gofuse.NodeLookuper  = (*node)(nil)
	_ gofuse.NodeReaddirer = (*node)(nil)
	_ gofuse.NodeGetattrer = (*node)(nil)
	_ gofuse.NodeSetattrer = (*node)(nil)
	_ gofuse.NodeOpener    = (*node)(nil)
	_ gofuse.NodeCreater   = (*node)(nil)
	_ gofuse.NodeMkdirer   = (*node)(nil)
	_ gofuse.NodeUnlinker  = (*node)(nil)
	_ gofuse.NodeRmdirer   = (*node)(nil)
	_ gofuse.NodeRenamer   = (*node)(nil)
)

func (n *node) self() string {
	return pathing.Join(n.mount.scheme, n.Path(n.Root()))
}

func (n *node) child(name string) string {
	return pathing.Join(n.mount.scheme, path.Join(n.Path(n.Root()), name))
}

func (n *node) newChild(ctx context.Context, mode uint32) *gofuse.Inode {
	return n.NewInode(ctx, &node{mount: n.mount}, gofuse.StableAttr{Mode: mode & unix.S_IFMT})
}

func (n *node) errno(op, path string, err error) syscall.Errno {
	if !isNotExist(err) {
		n.mount.logger.Warn("Filesystem operation failed", "op", op, "path", path, "err", err)
	}

	return toErrno(err)
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := n.child(name)

	st, err := n.mount.handler.URLStat(ctx, p)
	if err != nil {
		return nil, n.errno("lookup", p, err)
	}

	n.mount.fillAttr(st, &out.Attr)

	return n.newChild(ctx, st.Mode), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	p := n.self()

	s, err := n.mount.handler.OpenDir(ctx, p)
	if err != nil {
		return nil, n.errno("readdir", p, err)
	}
	defer s.Close()

	var entries []fuse.DirEntry
	for {
		entry, err := s.ReadDirEntry()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, n.errno("readdir", p, err)
		}

		mode := uint32(unix.S_IFREG)
		if entry.IsDir {
			mode = unix.S_IFDIR
		}

		entries = append(entries, fuse.DirEntry{
			Name: path.Base(entry.Path),
			Mode: mode,
		})
	}

	return gofuse.NewListDirStream(entries), 0
}

// Getattr reports the stored attributes. A handle with uncommitted writes
// reports the size written so far.
func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	p := n.self()

	st, err := n.mount.handler.URLStat(ctx, p)
	if err != nil {
		return n.errno("getattr", p, err)
	}

	if h, ok := f.(*handle); ok {
		if size, pending := h.pendingSize(); pending {
			st.Size = size
		}
	}

	n.mount.fillAttr(st, &out.Attr)

	return 0
}

// Setattr refuses permission and ownership changes. Truncation is accepted
// to zero length only, times are ignored.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	p := n.self()

	if mode, ok := in.GetMode(); ok {
		if err := n.mount.handler.Chmod(ctx, p, fs.FileMode(mode&0o777)); err != nil {
			return syscall.EPERM
		}
	}
	if uid, ok := in.GetUID(); ok {
		if err := n.mount.handler.Chown(ctx, p, int(uid)); err != nil {
			return syscall.EPERM
		}
	}
	if gid, ok := in.GetGID(); ok {
		if err := n.mount.handler.Chgrp(ctx, p, int(gid)); err != nil {
			return syscall.EPERM
		}
	}

	if size, ok := in.GetSize(); ok {
		if size != 0 {
			return syscall.ENOTSUP
		}

		if h, ok := f.(*handle); ok {
			if errno := h.truncate(); errno != 0 {
				return errno
			}
		} else if err := n.mount.handler.WriteFile(ctx, p, nil); err != nil {
			return n.errno("truncate", p, err)
		}
	}

	return n.Getattr(ctx, f, out)
}

func (n *node) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&unix.O_APPEND != 0 {
		return nil, 0, syscall.ENOTSUP
	}

	h := n.mount.open(n.self(), flags)
	if flags&unix.O_TRUNC != 0 && h.session.Mode().CanWrite() {
		h.pending = true
	}

	return h, 0, 0
}

// Create makes the file visible right away and returns a handle whose
// writes replace its content.
func (n *node) Create(ctx context.Context, name string, flags uint32, _ uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&unix.O_APPEND != 0 {
		return nil, nil, 0, syscall.ENOTSUP
	}

	p := n.child(name)

	if err := n.mount.handler.Touch(ctx, p); err != nil {
		return nil, nil, 0, n.errno("create", p, err)
	}

	st, err := n.mount.handler.URLStat(ctx, p)
	if err != nil {
		return nil, nil, 0, n.errno("create", p, err)
	}

	n.mount.fillAttr(st, &out.Attr)

	return n.newChild(ctx, st.Mode), n.mount.open(p, flags), 0, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	p := n.child(name)

	if err := n.mount.handler.Mkdir(ctx, p, fs.FileMode(mode&0o777)); err != nil {
		return nil, n.errno("mkdir", p, err)
	}

	st, err := n.mount.handler.URLStat(ctx, p)
	if err != nil {
		return nil, n.errno("mkdir", p, err)
	}

	n.mount.fillAttr(st, &out.Attr)

	return n.newChild(ctx, st.Mode), 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	p := n.child(name)

	if err := n.mount.handler.Unlink(ctx, p); err != nil {
		return n.errno("unlink", p, err)
	}

	return 0
}

// Rmdir removes an empty directory. Storage removes directories with their
// contents, so emptiness is checked first.
func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	p := n.child(name)

	s, err := n.mount.handler.OpenDir(ctx, p)
	if err != nil {
		return n.errno("rmdir", p, err)
	}

	_, err = s.ReadDirEntry()
	s.Close()

	if err == nil {
		return syscall.ENOTEMPTY
	} else if !errors.Is(err, io.EOF) {
		return n.errno("rmdir", p, err)
	}

	if err := n.mount.handler.Rmdir(ctx, p); err != nil {
		return n.errno("rmdir", p, err)
	}

	return 0
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags != 0 {
		return syscall.ENOTSUP
	}

	parent, ok := newParent.(*node)
	if !ok {
		return syscall.EXDEV
	}

	from, to := n.child(name), parent.child(newName)

	if err := n.mount.handler.Rename(ctx, from, to); err != nil {
		return n.errno("rename", from, err)
	}

	return 0
}
