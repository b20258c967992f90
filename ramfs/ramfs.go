// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ramfs is the read-write in-memory filesystem backend. It
// serves as the root filesystem of a booted kernel and as the target
// for ramdisk archives unpacked at boot.
package ramfs

import (
	"context"
	"sort"
	"sync"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

type node struct {
	inode    *vfs.Inode
	data     []byte
	children map[string]*node

	// pins counts open handles; a pinned name refuses unlink.
	pins int
}

// FS is an in-memory tree backend. A single lock guards the tree,
// file contents and the byte budget; the structures are small and
// operations never block inside the lock.
type FS struct {
	mu      sync.RWMutex
	tag     vfs.BackendTag
	nextIno uint64
	root    *node

	// limit caps the bytes held in file contents; 0 means no cap.
	limit uint64
	used  uint64
}

// New returns an empty tree. limit caps the total content bytes;
// writes beyond it fail with NoSpace. A zero limit means unbounded.
func New(limit uint64) *FS {
	fs := &FS{nextIno: 1, limit: limit}
	fs.root = &node{children: map[string]*node{}}
	fs.root.inode = &vfs.Inode{
		ID:   1,
		Kind: abi.KindDirectory,
		Perm: abi.PermRW,
		Data: fs.root,
	}
	return fs
}

var (
	_ = (vfs.Backend)((*FS)(nil))
	_ = (vfs.Writer)((*FS)(nil))
	_ = (vfs.Creater)((*FS)(nil))
	_ = (vfs.Unlinker)((*FS)(nil))
	_ = (vfs.DirOpener)((*FS)(nil))
	_ = (vfs.Truncater)((*FS)(nil))
	_ = (vfs.Syncer)((*FS)(nil))
)

func (fs *FS) BackendName() string { return "ramfs" }

func (fs *FS) OnMount(tag vfs.BackendTag) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tag = tag
	fs.root.inode.Tag = tag
}

func (fs *FS) Root() *vfs.Inode { return fs.root.inode }

func (fs *FS) node(in *vfs.Inode) *node { return in.Data.(*node) }

func (fs *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, abi.ErrorStatus) {
	if !dir.IsDir() {
		return nil, abi.NotADirectory
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	child, ok := fs.node(dir).children[name]
	if !ok {
		return nil, abi.NotFound
	}
	return child.inode, abi.OK
}

func (fs *FS) Open(ctx context.Context, in *vfs.Inode, flags abi.OpenFlags) (vfs.Handle, abi.ErrorStatus) {
	if in.IsDir() {
		return nil, abi.IsADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := fs.node(in)
	n.pins++
	return n, abi.OK
}

func (fs *FS) Release(h vfs.Handle) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h.(*node).pins--
}

func (fs *FS) Read(ctx context.Context, h vfs.Handle, off uint64, dest []byte) (int, abi.ErrorStatus) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	n := h.(*node)
	if off >= uint64(len(n.data)) {
		return 0, abi.OK
	}
	return copy(dest, n.data[off:]), abi.OK
}

func (fs *FS) Write(ctx context.Context, h vfs.Handle, off uint64, data []byte) (int, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := h.(*node)
	end := off + uint64(len(data))
	if end > uint64(len(n.data)) {
		grow := end - uint64(len(n.data))
		if fs.limit > 0 && fs.used+grow > fs.limit {
			return 0, abi.NoSpace
		}
		fs.used += grow
		grown := make([]byte, end)
		copy(grown, n.data)
		n.data = grown
		n.inode.SizeHint = end
	}
	return copy(n.data[off:], data), abi.OK
}

func (fs *FS) Stat(in *vfs.Inode) (abi.FileAttr, abi.ErrorStatus) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return abi.FileAttr{
		Ino:  in.ID,
		Kind: in.Kind,
		Size: uint64(len(fs.node(in).data)),
		Perm: in.Perm,
	}, abi.OK
}

func (fs *FS) Create(dir *vfs.Inode, name string, kind abi.FileKind, perm abi.FilePerm) (*vfs.Inode, abi.ErrorStatus) {
	if !dir.IsDir() {
		return nil, abi.NotADirectory
	}
	if kind != abi.KindRegular && kind != abi.KindDirectory {
		return nil, abi.NotSupported
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.createLocked(fs.node(dir), name, kind, perm)
}

func (fs *FS) createLocked(d *node, name string, kind abi.FileKind, perm abi.FilePerm) (*vfs.Inode, abi.ErrorStatus) {
	if _, ok := d.children[name]; ok {
		return nil, abi.AlreadyExists
	}
	fs.nextIno++
	n := &node{}
	n.inode = &vfs.Inode{
		ID:   fs.nextIno,
		Kind: kind,
		Tag:  fs.tag,
		Perm: perm,
		Data: n,
	}
	if kind == abi.KindDirectory {
		n.children = map[string]*node{}
	}
	d.children[name] = n
	return n.inode, abi.OK
}

func (fs *FS) Unlink(dir *vfs.Inode, name string) abi.ErrorStatus {
	if !dir.IsDir() {
		return abi.NotADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	d := fs.node(dir)
	child, ok := d.children[name]
	if !ok {
		return abi.NotFound
	}
	if child.inode.IsDir() {
		return abi.IsADirectory
	}
	if child.pins > 0 {
		return abi.Busy
	}
	fs.used -= uint64(len(child.data))
	delete(d.children, name)
	return abi.OK
}

func (fs *FS) OpenDir(dir *vfs.Inode) (vfs.DirStream, abi.ErrorStatus) {
	if !dir.IsDir() {
		return nil, abi.NotADirectory
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	d := fs.node(dir)
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]abi.DirEntry, 0, len(names))
	for _, name := range names {
		c := d.children[name]
		entries = append(entries, abi.DirEntry{Name: name, Ino: c.inode.ID, Kind: c.inode.Kind})
	}
	return vfs.NewListDirStream(entries), abi.OK
}

func (fs *FS) Truncate(in *vfs.Inode, size uint64) abi.ErrorStatus {
	if in.IsDir() {
		return abi.IsADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := fs.node(in)
	cur := uint64(len(n.data))
	switch {
	case size == cur:
	case size < cur:
		fs.used -= cur - size
		n.data = n.data[:size]
	default:
		grow := size - cur
		if fs.limit > 0 && fs.used+grow > fs.limit {
			return abi.NoSpace
		}
		fs.used += grow
		grown := make([]byte, size)
		copy(grown, n.data)
		n.data = grown
	}
	n.inode.SizeHint = size
	return abi.OK
}

// Sync is a no-op: the tree has no backing store to flush.
func (fs *FS) Sync(in *vfs.Inode) abi.ErrorStatus {
	return abi.OK
}

// Used returns the bytes currently held in file contents.
func (fs *FS) Used() uint64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.used
}
