// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"context"

	"github.com/tern-os/tern/abi"
)

// VFS is the front door of the filesystem: it resolves absolute
// paths through the mount table, walks the owning backend and
// dispatches to its capabilities. Relative paths are the caller's
// business; everything here takes parsed absolute paths.
type VFS struct {
	mounts *MountTable
}

// New returns a VFS with an empty mount table.
func New() *VFS {
	return &VFS{mounts: NewMountTable()}
}

// Mount binds prefix to b. See MountTable.Mount.
func (v *VFS) Mount(prefix Path, b Backend) abi.ErrorStatus {
	return v.mounts.Mount(prefix, b)
}

// Unmount detaches the backend at prefix. See MountTable.Unmount.
func (v *VFS) Unmount(prefix Path) abi.ErrorStatus {
	return v.mounts.Unmount(prefix)
}

// Mounts lists the live mount entries in mount order.
func (v *VFS) Mounts() []MountPoint {
	return v.mounts.Mounts()
}

// resolveNode walks p to its inode: longest mounted prefix first,
// then component-wise lookup inside that backend. A trailing slash
// in p demands that the result is a directory.
func (v *VFS) resolveNode(p Path) (*mountEntry, *Inode, abi.ErrorStatus) {
	if !p.IsAbs() {
		return nil, nil, abi.InvalidPath
	}
	ent, rest, code := v.mounts.resolve(p)
	if !code.Ok() {
		return nil, nil, code
	}
	node := ent.root
	if node == nil {
		// Still registering.
		return nil, nil, abi.Busy
	}
	for _, name := range rest {
		if !node.IsDir() {
			return nil, nil, abi.NotADirectory
		}
		next, code := ent.backend.Lookup(node, name)
		if !code.Ok() {
			return nil, nil, code
		}
		node = next
	}
	if p.DirHint() && !node.IsDir() {
		return nil, nil, abi.NotADirectory
	}
	return ent, node, abi.OK
}

// Stat returns the metadata of the inode p resolves to.
func (v *VFS) Stat(p Path) (abi.FileAttr, abi.ErrorStatus) {
	ent, node, code := v.resolveNode(p)
	if !code.Ok() {
		return abi.FileAttr{}, code
	}
	return ent.backend.Stat(node)
}

// Open resolves p and prepares I/O on it. OpenCreate adds the final
// component when it is missing; OpenCreate|OpenExclusive insists on
// adding it and fails with AlreadyExists when p already resolves.
// Directories open as listings and refuse write access.
func (v *VFS) Open(ctx context.Context, p Path, flags abi.OpenFlags) (*OpenFile, abi.ErrorStatus) {
	ent, node, code := v.resolveNode(p)
	if code == abi.NotFound && flags&abi.OpenCreate != 0 {
		return v.createOpen(ctx, p, flags)
	}
	if !code.Ok() {
		return nil, code
	}
	if flags&abi.OpenCreate != 0 && flags&abi.OpenExclusive != 0 {
		return nil, abi.AlreadyExists
	}
	return v.openNode(ctx, ent, node, flags)
}

func (v *VFS) createOpen(ctx context.Context, p Path, flags abi.OpenFlags) (*OpenFile, abi.ErrorStatus) {
	if p.DirHint() {
		return nil, abi.IsADirectory
	}
	if len(p.comps) == 0 {
		return nil, abi.AlreadyExists
	}
	ent, dir, code := v.resolveNode(p.Parent())
	if !code.Ok() {
		return nil, code
	}
	c, ok := ent.backend.(Creater)
	if !ok {
		return nil, abi.NotSupported
	}
	node, code := c.Create(dir, p.Base(), abi.KindRegular, abi.PermRW)
	if code == abi.AlreadyExists && flags&abi.OpenExclusive == 0 {
		// Lost a create race; the winner's file serves.
		return v.Open(ctx, p, flags&^abi.OpenCreate)
	}
	if !code.Ok() {
		return nil, code
	}
	return v.openNode(ctx, ent, node, flags)
}

func (v *VFS) openNode(ctx context.Context, ent *mountEntry, node *Inode, flags abi.OpenFlags) (*OpenFile, abi.ErrorStatus) {
	if flags.Readable() && node.Perm&abi.PermRead == 0 {
		return nil, abi.PermissionDenied
	}
	if flags.Writable() && node.Perm&abi.PermWrite == 0 {
		return nil, abi.PermissionDenied
	}
	if code := v.mounts.pin(ent); !code.Ok() {
		return nil, code
	}

	f := &OpenFile{
		ent:   ent,
		inode: node,
		flags: flags,
		perm:  node.Perm,
		state: fileFresh,
		refs:  1,
	}
	if node.IsDir() {
		if flags.Writable() {
			v.mounts.unpin(ent)
			return nil, abi.IsADirectory
		}
		do, ok := ent.backend.(DirOpener)
		if !ok {
			v.mounts.unpin(ent)
			return nil, abi.NotSupported
		}
		ds, code := do.OpenDir(node)
		if !code.Ok() {
			v.mounts.unpin(ent)
			return nil, code
		}
		f.dir = ds
	} else {
		h, code := ent.backend.Open(ctx, node, flags)
		if !code.Ok() {
			v.mounts.unpin(ent)
			return nil, code
		}
		f.handle = h
	}
	f.state = fileActive
	return f, abi.OK
}

// Close drops one reference to f. The last close releases the
// backend handle and unpins the mount entry, which may complete a
// pending unmount. Closing an already closed file fails with
// BadDescriptor.
func (v *VFS) Close(f *OpenFile) abi.ErrorStatus {
	last, code := f.decref()
	if !code.Ok() {
		return code
	}
	if last {
		if f.dir != nil {
			f.dir.Close()
		} else {
			f.ent.backend.Release(f.handle)
		}
		v.mounts.unpin(f.ent)
	}
	return abi.OK
}

// Mkdir adds a directory at p.
func (v *VFS) Mkdir(p Path, perm abi.FilePerm) abi.ErrorStatus {
	if !p.IsAbs() {
		return abi.InvalidPath
	}
	if len(p.comps) == 0 {
		return abi.AlreadyExists
	}
	if _, _, code := v.resolveNode(p); code.Ok() {
		// Covers names shadowed by a mount prefix too.
		return abi.AlreadyExists
	}
	ent, dir, code := v.resolveNode(p.Parent())
	if !code.Ok() {
		return code
	}
	c, ok := ent.backend.(Creater)
	if !ok {
		return abi.NotSupported
	}
	_, code = c.Create(dir, p.Base(), abi.KindDirectory, perm)
	return code
}

// Unlink removes the entry at p. Directories and names with live
// opens refuse per the backend's rules.
func (v *VFS) Unlink(p Path) abi.ErrorStatus {
	if !p.IsAbs() {
		return abi.InvalidPath
	}
	if len(p.comps) == 0 {
		return abi.IsADirectory
	}
	ent, dir, code := v.resolveNode(p.Parent())
	if !code.Ok() {
		return code
	}
	u, ok := ent.backend.(Unlinker)
	if !ok {
		return abi.NotSupported
	}
	return u.Unlink(dir, p.Base())
}

// Truncate sets the byte length of the regular file at p.
func (v *VFS) Truncate(p Path, size uint64) abi.ErrorStatus {
	ent, node, code := v.resolveNode(p)
	if !code.Ok() {
		return code
	}
	if node.IsDir() {
		return abi.IsADirectory
	}
	// Capability absence wins over per-node permissions, as with
	// writes on writer-less backends.
	tr, ok := ent.backend.(Truncater)
	if !ok {
		return abi.NotSupported
	}
	if node.Perm&abi.PermWrite == 0 {
		return abi.PermissionDenied
	}
	return tr.Truncate(node, size)
}

// Sync flushes the inode at p on backends that support it.
func (v *VFS) Sync(p Path) abi.ErrorStatus {
	ent, node, code := v.resolveNode(p)
	if !code.Ok() {
		return code
	}
	s, ok := ent.backend.(Syncer)
	if !ok {
		return abi.NotSupported
	}
	return s.Sync(node)
}

// SyncAll flushes every mounted backend that supports syncing. The
// first failure is reported after all backends have been visited.
func (v *VFS) SyncAll() abi.ErrorStatus {
	first := abi.OK
	for _, b := range v.mounts.liveBackends() {
		s, ok := b.(Syncer)
		if !ok {
			continue
		}
		if code := s.Sync(nil); !code.Ok() && first.Ok() {
			first = code
		}
	}
	return first
}
