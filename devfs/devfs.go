// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devfs exposes kernel drivers as character-device inodes,
// conventionally mounted at /dev. Each registered driver becomes one
// device file under the mount root. Devices are byte streams: the
// read/write offset is ignored, reads block until the driver has at
// least one byte, and writes may come back short under backpressure.
package devfs

import (
	"context"
	"sort"
	"sync"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

// Driver is the vtable a device exposes to the filesystem.
//
// ReadByte blocks until a byte is available or ctx is cancelled, in
// which case it returns Interrupted. Poll reports whether ReadByte
// would return promptly. WriteBytes accepts a prefix of p and returns
// how much it took; a short count is backpressure, not an error.
type Driver interface {
	DriverName() string
	ReadByte(ctx context.Context) (byte, abi.ErrorStatus)
	WriteBytes(p []byte) (int, abi.ErrorStatus)
	Poll() bool
}

// devNode is the Inode.Data payload of a device file. wmu serialises
// writers so each write lands contiguously in the device stream.
type devNode struct {
	driver Driver
	wmu    sync.Mutex
}

type devHandle struct {
	dev   *devNode
	flags abi.OpenFlags
}

// FS is the device filesystem backend.
type FS struct {
	mu      sync.RWMutex
	tag     vfs.BackendTag
	nextIno uint64
	root    *vfs.Inode
	devices map[string]*vfs.Inode
}

var (
	_ = (vfs.Backend)((*FS)(nil))
	_ = (vfs.Writer)((*FS)(nil))
	_ = (vfs.DirOpener)((*FS)(nil))
)

// New returns an empty device filesystem; drivers arrive via Register.
func New() *FS {
	fs := &FS{devices: make(map[string]*vfs.Inode)}
	fs.nextIno = 1
	fs.root = &vfs.Inode{ID: 1, Kind: abi.KindDirectory, Perm: abi.PermRead}
	return fs
}

// Register adds d under its driver name. Registering a name twice
// fails with AlreadyExists.
func (fs *FS) Register(d Driver) abi.ErrorStatus {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	name := d.DriverName()
	if _, ok := fs.devices[name]; ok {
		return abi.AlreadyExists
	}
	fs.nextIno++
	fs.devices[name] = &vfs.Inode{
		ID:   fs.nextIno,
		Kind: abi.KindDevice,
		Tag:  fs.tag,
		Perm: abi.PermRW,
		Data: &devNode{driver: d},
	}
	return abi.OK
}

func (fs *FS) BackendName() string { return "devfs" }

func (fs *FS) OnMount(tag vfs.BackendTag) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tag = tag
	fs.root.Tag = tag
	for _, in := range fs.devices {
		in.Tag = tag
	}
}

func (fs *FS) Root() *vfs.Inode { return fs.root }

func (fs *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, abi.ErrorStatus) {
	if dir != fs.root {
		return nil, abi.NotFound
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	if in, ok := fs.devices[name]; ok {
		return in, abi.OK
	}
	return nil, abi.NotFound
}

func (fs *FS) Open(_ context.Context, in *vfs.Inode, flags abi.OpenFlags) (vfs.Handle, abi.ErrorStatus) {
	n, ok := in.Data.(*devNode)
	if !ok {
		return nil, abi.IsADirectory
	}
	return &devHandle{dev: n, flags: flags}, abi.OK
}

// Read delivers at least one byte, blocking for the first unless the
// descriptor is nonblocking, then drains whatever the driver already
// has. Cancellation mid-drain returns the bytes delivered so far.
func (fs *FS) Read(ctx context.Context, h vfs.Handle, _ uint64, dest []byte) (int, abi.ErrorStatus) {
	dh := h.(*devHandle)
	if len(dest) == 0 {
		return 0, abi.OK
	}
	d := dh.dev.driver
	if dh.flags&abi.OpenNonBlock != 0 && !d.Poll() {
		return 0, abi.Busy
	}
	b, code := d.ReadByte(ctx)
	if !code.Ok() {
		return 0, code
	}
	dest[0] = b
	n := 1
	for n < len(dest) && d.Poll() {
		b, code := d.ReadByte(ctx)
		if !code.Ok() {
			break
		}
		dest[n] = b
		n++
	}
	return n, abi.OK
}

// Write forwards to the driver under the device's write mutex, so
// concurrent writers never interleave within one call.
func (fs *FS) Write(_ context.Context, h vfs.Handle, _ uint64, data []byte) (int, abi.ErrorStatus) {
	dh := h.(*devHandle)
	dh.dev.wmu.Lock()
	defer dh.dev.wmu.Unlock()
	return dh.dev.driver.WriteBytes(data)
}

func (fs *FS) Stat(in *vfs.Inode) (abi.FileAttr, abi.ErrorStatus) {
	return abi.FileAttr{Ino: in.ID, Kind: in.Kind, Size: 0, Perm: in.Perm}, abi.OK
}

func (fs *FS) Release(vfs.Handle) {}

func (fs *FS) OpenDir(dir *vfs.Inode) (vfs.DirStream, abi.ErrorStatus) {
	if dir != fs.root {
		return nil, abi.NotADirectory
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	names := make([]string, 0, len(fs.devices))
	for name := range fs.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]abi.DirEntry, 0, len(names))
	for _, name := range names {
		in := fs.devices[name]
		entries = append(entries, abi.DirEntry{Name: name, Ino: in.ID, Kind: in.Kind})
	}
	return vfs.NewListDirStream(entries), abi.OK
}
