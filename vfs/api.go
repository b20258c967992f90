// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vfs implements the virtual filesystem: a single
// path-addressed namespace assembled from pluggable backends.
//
// A Backend owns a tree of inodes and implements a small required
// capability set (lookup, open, read, stat, release). Everything
// else is optional and discovered by type assertion at the dispatch
// site: a backend that can create files implements Creater, one
// that can enumerate directories implements DirOpener, and so on.
// Operations a backend does not implement fail with NotSupported.
//
// The mount table binds path prefixes to backends. Resolution picks
// the longest mounted prefix and walks the remainder inside that
// backend, so a backend never sees a path that escapes its own
// tree. Open files carry the cursor and the permission snapshot;
// descriptor tables map small per-task integers onto them.
//
// All blocking operations take a context and fail with Interrupted
// when it is cancelled. Status codes, not Go errors, cross every
// boundary in this package.
package vfs

import (
	"context"

	"github.com/tern-os/tern/abi"
)

// Handle is a backend's per-open state, created by Open and ended
// by Release. The rest of the kernel treats it as opaque.
type Handle interface{}

// Backend is the required capability set of a mounted filesystem.
//
// Lookup resolves name inside dir. Open prepares byte I/O on a
// non-directory inode and may block on device backends; opening a
// directory this way fails with IsADirectory. Read serves from the
// open handle at the given offset; a zero count with status OK is
// end of file. Release ends an open handle; it must be idempotent
// per handle and is called exactly once by the dispatch layer.
type Backend interface {
	// BackendName identifies the backend type in mount listings
	// and logs, e.g. "ramfs".
	BackendName() string

	// OnMount hands the backend its tag when it enters the mount
	// table, before any other call. Issued inodes carry this tag.
	OnMount(tag BackendTag)

	Root() *Inode
	Lookup(dir *Inode, name string) (*Inode, abi.ErrorStatus)
	Open(ctx context.Context, in *Inode, flags abi.OpenFlags) (Handle, abi.ErrorStatus)
	Read(ctx context.Context, h Handle, off uint64, dest []byte) (int, abi.ErrorStatus)
	Stat(in *Inode) (abi.FileAttr, abi.ErrorStatus)
	Release(h Handle)
}

// Writer is a backend that accepts writes on open handles. A short
// count with status OK signals backpressure; callers retry.
type Writer interface {
	Write(ctx context.Context, h Handle, off uint64, data []byte) (int, abi.ErrorStatus)
}

// Creater is a backend that can add entries to its directories.
type Creater interface {
	Create(dir *Inode, name string, kind abi.FileKind, perm abi.FilePerm) (*Inode, abi.ErrorStatus)
}

// Unlinker is a backend that can remove entries. Removing a name
// with live opens fails with Busy; removing a directory fails with
// IsADirectory.
type Unlinker interface {
	Unlink(dir *Inode, name string) abi.ErrorStatus
}

// DirOpener is a backend whose directories can be enumerated. The
// stream is a point-in-time listing owned by the caller.
type DirOpener interface {
	OpenDir(dir *Inode) (DirStream, abi.ErrorStatus)
}

// Truncater is a backend that can change a file's length.
type Truncater interface {
	Truncate(in *Inode, size uint64) abi.ErrorStatus
}

// Syncer is a backend that can flush state. A nil inode means the
// whole backend.
type Syncer interface {
	Sync(in *Inode) abi.ErrorStatus
}
