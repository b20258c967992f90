// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mem meters the kernel's page frames. The allocator is a
// bounded resource: grants fail immediately with OutOfMemory when
// the budget is exhausted, they never block.
package mem

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/tern-os/tern/abi"
)

// DefaultPageSize is the frame granularity used when the
// configuration does not override it.
const DefaultPageSize = 4096

// Allocator hands out page-granular byte buffers from a fixed frame
// budget. The usable and mapped counts feed the sysinfo and meminfo
// surfaces: total memory is usable frames times the page size, used
// memory is mapped frames times the page size.
type Allocator struct {
	pageSize uint64
	usable   uint64
	sem      *semaphore.Weighted
	mapped   atomic.Uint64
}

// NewAllocator returns an allocator managing usableFrames frames of
// pageSize bytes each. A zero pageSize selects DefaultPageSize.
func NewAllocator(usableFrames, pageSize uint64) *Allocator {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Allocator{
		pageSize: pageSize,
		usable:   usableFrames,
		sem:      semaphore.NewWeighted(int64(usableFrames)),
	}
}

// PageSize returns the frame granularity in bytes.
func (a *Allocator) PageSize() uint64 {
	return a.pageSize
}

// UsableFrames returns the total frame budget.
func (a *Allocator) UsableFrames() uint64 {
	return a.usable
}

// MappedFrames returns the frames currently granted.
func (a *Allocator) MappedFrames() uint64 {
	return a.mapped.Load()
}

// TotalBytes returns the byte size of the whole budget.
func (a *Allocator) TotalBytes() uint64 {
	return a.usable * a.pageSize
}

// UsedBytes returns the byte size of the granted frames.
func (a *Allocator) UsedBytes() uint64 {
	return a.mapped.Load() * a.pageSize
}

// FramesFor returns the frames needed to hold n bytes.
func (a *Allocator) FramesFor(n uint64) uint64 {
	return (n + a.pageSize - 1) / a.pageSize
}

// Grant reserves frames and returns their backing buffer. The whole
// request is granted or nothing is; exhaustion reports OutOfMemory
// without blocking.
func (a *Allocator) Grant(frames uint64) ([]byte, abi.ErrorStatus) {
	if frames == 0 {
		return nil, abi.OK
	}
	if !a.sem.TryAcquire(int64(frames)) {
		return nil, abi.OutOfMemory
	}
	a.mapped.Add(frames)
	return make([]byte, frames*a.pageSize), abi.OK
}

// Release returns a granted buffer's frames to the budget. buf must
// be the slice Grant returned.
func (a *Allocator) Release(buf []byte) {
	if len(buf) == 0 {
		return
	}
	frames := uint64(cap(buf)) / a.pageSize
	a.mapped.Add(^(frames - 1))
	a.sem.Release(int64(frames))
}
