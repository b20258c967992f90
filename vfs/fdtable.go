// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"sync"

	"github.com/tern-os/tern/abi"
)

// stdSlots is the carve-out for the standard streams. Descriptors
// 0, 1 and 2 are bound only through Bind at spawn time and are
// never handed out by Allocate.
const stdSlots = 3

// FDTable is one task's descriptor space: a slot array indexed by
// descriptor, nil meaning free. Allocation returns the lowest free
// slot above the standard-stream carve-out.
type FDTable struct {
	mu    sync.Mutex
	files []*OpenFile
}

// NewFDTable returns a table with the three standard slots present
// but unbound.
func NewFDTable() *FDTable {
	return &FDTable{files: make([]*OpenFile, stdSlots)}
}

// Allocate installs f in the lowest free descriptor >= 3.
func (t *FDTable) Allocate(f *OpenFile) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := stdSlots; i < len(t.files); i++ {
		if t.files[i] == nil {
			t.files[i] = f
			return i
		}
	}
	t.files = append(t.files, f)
	return len(t.files) - 1
}

// Bind installs f as one of the standard streams. Only 0, 1 and 2
// are bindable; occupied slots refuse with Busy.
func (t *FDTable) Bind(fd int, f *OpenFile) abi.ErrorStatus {
	if fd < 0 || fd >= stdSlots {
		return abi.BadDescriptor
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.files[fd] != nil {
		return abi.Busy
	}
	t.files[fd] = f
	return abi.OK
}

// Get resolves a descriptor. Unbound slots, including a standard
// stream left absent at spawn, fail with BadDescriptor.
func (t *FDTable) Get(fd int) (*OpenFile, abi.ErrorStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		return nil, abi.BadDescriptor
	}
	return t.files[fd], abi.OK
}

// Release empties the slot and returns the file that occupied it.
// A second release of the same descriptor fails with BadDescriptor.
func (t *FDTable) Release(fd int) (*OpenFile, abi.ErrorStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		return nil, abi.BadDescriptor
	}
	f := t.files[fd]
	t.files[fd] = nil
	return f, abi.OK
}

// Dup installs a second descriptor for the file behind src. Both
// descriptors share the open file and therefore its cursor.
func (t *FDTable) Dup(src int) (int, abi.ErrorStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if src < 0 || src >= len(t.files) || t.files[src] == nil {
		return 0, abi.BadDescriptor
	}
	f := t.files[src]
	if code := f.ref(); !code.Ok() {
		return 0, code
	}
	for i := stdSlots; i < len(t.files); i++ {
		if t.files[i] == nil {
			t.files[i] = f
			return i, abi.OK
		}
	}
	t.files = append(t.files, f)
	return len(t.files) - 1, abi.OK
}

// Clone shallow-copies the table for a spawned task; every entry
// shares its open file with the parent.
func (t *FDTable) Clone() *FDTable {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.files)
	if n < stdSlots {
		n = stdSlots
	}
	out := &FDTable{files: make([]*OpenFile, n)}
	for i, f := range t.files {
		if f == nil {
			continue
		}
		if code := f.ref(); !code.Ok() {
			continue
		}
		out.files[i] = f
	}
	return out
}

// Drain empties every slot and returns the files in ascending
// descriptor order for the caller to close.
func (t *FDTable) Drain() []*OpenFile {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*OpenFile
	for i, f := range t.files {
		if f != nil {
			out = append(out, f)
			t.files[i] = nil
		}
	}
	return out
}

// Count returns the number of bound descriptors.
func (t *FDTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, f := range t.files {
		if f != nil {
			n++
		}
	}
	return n
}
