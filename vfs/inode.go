// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"fmt"

	"github.com/tern-os/tern/abi"
)

// BackendTag identifies a mounted backend instance. Tags are minted
// by the mount table and are never reused within one kernel.
type BackendTag uint32

// Inode is the kernel's handle to a file, directory or device,
// independent of any path that named it. Inodes are owned and
// issued by their backend; the (Tag, ID) pair is stable for the
// inode's lifetime and Kind never mutates. Data is private to the
// issuing backend. There is no pointer from an inode back to its
// backend: the tag is resolved through the mount table.
type Inode struct {
	ID   uint64
	Kind abi.FileKind
	Tag  BackendTag
	Perm abi.FilePerm

	// SizeHint is an advisory byte length; 0 when not knowable
	// (synthesised files have no size until opened).
	SizeHint uint64

	Data any
}

// IsDir reports whether the inode is a directory.
func (in *Inode) IsDir() bool {
	return in.Kind == abi.KindDirectory
}

func (in *Inode) String() string {
	return fmt.Sprintf("i%d.%d[%s]", in.Tag, in.ID, in.Kind)
}
