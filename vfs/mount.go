// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"sync"
	"sync/atomic"

	"github.com/tern-os/tern/abi"
)

type mountState int32

const (
	mountRegistering mountState = iota
	mountMounted
	mountUnmounting
	mountRemoved
)

func (s mountState) String() string {
	switch s {
	case mountRegistering:
		return "Registering"
	case mountMounted:
		return "Mounted"
	case mountUnmounting:
		return "Unmounting"
	case mountRemoved:
		return "Removed"
	}
	return "Unknown"
}

type mountEntry struct {
	tag     BackendTag
	prefix  Path
	backend Backend
	root    *Inode

	// state is guarded by the table lock; opens is the number of
	// open files pinning this entry.
	state mountState
	opens atomic.Int64
}

// MountPoint is the read-only view of one table entry, consumed by
// mount listings.
type MountPoint struct {
	Tag     BackendTag
	Prefix  string
	Backend string
	State   string
	Opens   int64

	// ReadOnly is set for backends without the write capability.
	ReadOnly bool
}

// MountTable binds path prefixes to backends. Prefixes may stack:
// the entry mounted at / is shadowed wherever a longer prefix is
// mounted, and resolution always picks the longest mounted
// ancestor. Reads dominate; a single RWMutex guards the table and
// is never held across a call into a backend.
type MountTable struct {
	mu      sync.RWMutex
	nextTag BackendTag
	entries []*mountEntry
}

// NewMountTable returns an empty table.
func NewMountTable() *MountTable {
	return &MountTable{}
}

// Mount binds prefix to b. The prefix must be absolute. Mounting on
// a prefix that already carries a live entry fails with
// AlreadyMounted; mounting under or above an existing prefix is the
// documented shadowing arrangement and succeeds.
func (t *MountTable) Mount(prefix Path, b Backend) abi.ErrorStatus {
	if !prefix.IsAbs() {
		return abi.InvalidPrefix
	}
	// /proc and /proc/ name the same mount point.
	prefix.dirHint = false

	e := &mountEntry{prefix: prefix, backend: b, state: mountRegistering}
	t.mu.Lock()
	for _, other := range t.entries {
		if other.state != mountRemoved && other.prefix.Equal(prefix) {
			t.mu.Unlock()
			return abi.AlreadyMounted
		}
	}
	t.nextTag++
	e.tag = t.nextTag
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	// Backend calls happen outside the table lock.
	b.OnMount(e.tag)
	root := b.Root()

	t.mu.Lock()
	e.root = root
	e.state = mountMounted
	t.mu.Unlock()
	return abi.OK
}

// Unmount detaches the entry mounted exactly at prefix. With open
// files still pinning the entry it moves to Unmounting and returns
// Busy: new opens are refused, existing descriptors drain, and the
// entry leaves the table when the last one closes.
func (t *MountTable) Unmount(prefix Path) abi.ErrorStatus {
	prefix.dirHint = false
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e.state == mountRemoved || !e.prefix.Equal(prefix) {
			continue
		}
		if e.opens.Load() > 0 {
			e.state = mountUnmounting
			return abi.Busy
		}
		e.state = mountRemoved
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		return abi.OK
	}
	return abi.NotMounted
}

// resolve picks the entry with the longest prefix that is an
// ancestor of p and returns it with the remaining components.
func (t *MountTable) resolve(p Path) (*mountEntry, []string, abi.ErrorStatus) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best *mountEntry
	bestLen := -1
	for _, e := range t.entries {
		if e.state == mountRemoved {
			continue
		}
		pl := len(e.prefix.comps)
		if pl > bestLen && hasCompPrefix(p.comps, e.prefix.comps) {
			best, bestLen = e, pl
		}
	}
	if best == nil {
		return nil, nil, abi.NotMounted
	}
	return best, p.comps[bestLen:], abi.OK
}

// pin counts an open against e. Only a Mounted entry accepts new
// opens; Registering and Unmounting entries refuse with Busy.
func (t *MountTable) pin(e *mountEntry) abi.ErrorStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e.state != mountMounted {
		return abi.Busy
	}
	e.opens.Add(1)
	return abi.OK
}

// unpin drops an open. The last unpin of an Unmounting entry
// completes its removal.
func (t *MountTable) unpin(e *mountEntry) {
	if e.opens.Add(-1) > 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.state != mountUnmounting || e.opens.Load() != 0 {
		return
	}
	e.state = mountRemoved
	for i, o := range t.entries {
		if o == e {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// byTag looks an entry up by its tag.
func (t *MountTable) byTag(tag BackendTag) *mountEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.tag == tag && e.state != mountRemoved {
			return e
		}
	}
	return nil
}

// Mounts returns the live entries in mount order.
func (t *MountTable) Mounts() []MountPoint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]MountPoint, 0, len(t.entries))
	for _, e := range t.entries {
		if e.state == mountRemoved {
			continue
		}
		_, canWrite := e.backend.(Writer)
		out = append(out, MountPoint{
			Tag:      e.tag,
			Prefix:   e.prefix.String(),
			Backend:  e.backend.BackendName(),
			State:    e.state.String(),
			Opens:    e.opens.Load(),
			ReadOnly: !canWrite,
		})
	}
	return out
}

// liveBackends snapshots the mounted backends for whole-table
// operations; the table lock is not held across the returned slice.
func (t *MountTable) liveBackends() []Backend {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Backend, 0, len(t.entries))
	for _, e := range t.entries {
		if e.state == mountMounted {
			out = append(out, e.backend)
		}
	}
	return out
}

func hasCompPrefix(comps, prefix []string) bool {
	if len(prefix) > len(comps) {
		return false
	}
	for i := range prefix {
		if comps[i] != prefix[i] {
			return false
		}
	}
	return true
}
