// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"context"
	"sync"

	"github.com/tern-os/tern/abi"
)

type fileState int32

const (
	fileFresh fileState = iota
	fileActive
	fileClosed
)

// OpenFile is the kernel-side state of one open: the pinned inode,
// the backend handle, the cursor and a snapshot of the permissions
// taken at open time. Duplicated descriptors share one OpenFile and
// therefore one cursor; the object is freed when the last reference
// closes.
//
// The mutex guards offset, state and refs. It is held across the
// backend call so that operations on one open file are linearisable:
// the offset observed by operation N is the offset left by N-1.
type OpenFile struct {
	ent   *mountEntry
	inode *Inode

	handle Handle
	dir    DirStream
	flags  abi.OpenFlags
	perm   abi.FilePerm

	mu     sync.Mutex
	offset uint64
	state  fileState
	refs   int
}

// Flags returns the open flags the file was created with.
func (f *OpenFile) Flags() abi.OpenFlags {
	return f.flags
}

// Kind returns the kind of the underlying inode.
func (f *OpenFile) Kind() abi.FileKind {
	return f.inode.Kind
}

// IsDir reports whether the open names a directory.
func (f *OpenFile) IsDir() bool {
	return f.dir != nil
}

// Read fills dest from the current offset and advances it by the
// bytes delivered. A cancelled context surfaces as Interrupted with
// any partial bytes already counted into the offset.
func (f *OpenFile) Read(ctx context.Context, dest []byte) (int, abi.ErrorStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fileActive {
		return 0, abi.BadDescriptor
	}
	if f.dir != nil {
		return 0, abi.IsADirectory
	}
	if !f.flags.Readable() {
		return 0, abi.PermissionDenied
	}
	n, code := f.ent.backend.Read(ctx, f.handle, f.offset, dest)
	f.offset += uint64(n)
	return n, code
}

// Write stores data at the current offset, or at the end of the
// file when the open is in append mode. Short writes signal
// backpressure; the cursor advances only by the accepted count.
func (f *OpenFile) Write(ctx context.Context, data []byte) (int, abi.ErrorStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fileActive {
		return 0, abi.BadDescriptor
	}
	if f.dir != nil {
		return 0, abi.IsADirectory
	}
	// A backend without the write capability is read-only as a
	// whole; that wins over the descriptor's own flags.
	w, ok := f.ent.backend.(Writer)
	if !ok {
		return 0, abi.ReadOnly
	}
	if !f.flags.Writable() {
		return 0, abi.PermissionDenied
	}

	off := f.offset
	if f.flags&abi.OpenAppend != 0 {
		if attr, code := f.ent.backend.Stat(f.inode); code.Ok() {
			off = attr.Size
		}
	}
	n, code := w.Write(ctx, f.handle, off, data)
	f.offset = off + uint64(n)
	return n, code
}

// ReadDir returns the next directory entry. ok is false once the
// listing is exhausted; the entry is not valid then.
func (f *OpenFile) ReadDir() (entry abi.DirEntry, ok bool, code abi.ErrorStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fileActive {
		return abi.DirEntry{}, false, abi.BadDescriptor
	}
	if f.dir == nil {
		return abi.DirEntry{}, false, abi.NotADirectory
	}
	if !f.dir.HasNext() {
		return abi.DirEntry{}, false, abi.OK
	}
	e, code := f.dir.Next()
	if !code.Ok() {
		return abi.DirEntry{}, false, code
	}
	return e, true, abi.OK
}

// Retain adds a reference for a second holder of the open file, as
// when a spawned task inherits a parent descriptor. Each holder's
// Close drops one reference.
func (f *OpenFile) Retain() abi.ErrorStatus {
	return f.ref()
}

// ref shares the open file with one more descriptor.
func (f *OpenFile) ref() abi.ErrorStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != fileActive {
		return abi.BadDescriptor
	}
	f.refs++
	return abi.OK
}

// decref drops one descriptor's reference. It reports whether this
// was the last one, which moves the file to its terminal state.
func (f *OpenFile) decref() (last bool, code abi.ErrorStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == fileClosed {
		return false, abi.BadDescriptor
	}
	f.refs--
	if f.refs > 0 {
		return false, abi.OK
	}
	f.state = fileClosed
	return true, abi.OK
}
