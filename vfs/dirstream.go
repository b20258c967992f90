// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"github.com/tern-os/tern/abi"
)

// DirStream lists directory entries one at a time. Streams are not
// safe for concurrent use; the open file owning a stream serialises
// access to it.
type DirStream interface {
	// HasNext indicates if there are further entries.
	HasNext() bool

	// Next retrieves the next entry. It may only be called when
	// HasNext has previously returned true.
	Next() (abi.DirEntry, abi.ErrorStatus)

	// Close releases resources related to this stream.
	Close()
}

type dirArray struct {
	idx     int
	entries []abi.DirEntry
}

func (a *dirArray) HasNext() bool {
	return a.idx < len(a.entries)
}

func (a *dirArray) Next() (abi.DirEntry, abi.ErrorStatus) {
	e := a.entries[a.idx]
	a.idx++
	return e, abi.OK
}

func (a *dirArray) Close() {
}

// NewListDirStream wraps a slice of DirEntry as a DirStream.
func NewListDirStream(list []abi.DirEntry) DirStream {
	return &dirArray{entries: list}
}
