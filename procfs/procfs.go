// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procfs is the synthesising backend mounted at /proc. Its
// files have no storage: Open collects a point-in-time snapshot of
// kernel state, formats it as key: value text into pages granted by
// the frame allocator, and reads serve slices of that buffer. The
// snapshot decouples the atomicity of the observation from the
// granularity of the reads.
package procfs

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/kernel/mem"
	"github.com/tern-os/tern/vfs"
)

// CPU describes one logical processor in cpuinfo.
type CPU struct {
	Vendor string
	Model  string
}

// TaskStat is one task's row, rendered into /proc/<pid>/status.
type TaskStat struct {
	Pid       uint64
	Name      string
	State     string
	Cwd       string
	OpenFiles int
}

// SysSource is the kernel state the files are synthesised from.
// Implementations must not call back into the filesystem: every
// method runs with the procfs lock held.
type SysSource interface {
	SysInfo() abi.SysInfo
	CPUs() []CPU
	Kernel() (name, build, bootID string)
	TaskStats() []TaskStat
	Mounts() []vfs.MountPoint
}

// Variant selects the published file set.
type Variant uint8

const (
	// VariantFull publishes cpuinfo, meminfo, kernelinfo and mounts.
	VariantFull Variant = iota
	// VariantMinimal drops kernelinfo.
	VariantMinimal
)

func (v Variant) String() string {
	switch v {
	case VariantFull:
		return "full"
	case VariantMinimal:
		return "minimal"
	}
	return "unknown"
}

// ParseVariant maps a configuration string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "full":
		return VariantFull, nil
	case "minimal":
		return VariantMinimal, nil
	}
	return 0, fmt.Errorf("procfs variant %q: want full or minimal", s)
}

// synth formats one file's snapshot text. The procfs lock is held.
type synth func(fs *FS, n *pnode) ([]byte, abi.ErrorStatus)

// pnode is the Inode.Data payload of every procfs inode.
type pnode struct {
	synth synth  // nil for directories
	pid   uint64 // task dir and its status file

	// live snapshots, for Stat sizes.
	live map[*snapshot]struct{}
}

// snapshot is the per-open handle: formatted text in allocator pages.
type snapshot struct {
	owner *pnode
	buf   []byte
	n     int
}

type fixedEntry struct {
	name  string
	inode *vfs.Inode
}

// FS implements the backend. Directory contents under the root are
// live: the fixed files come first in registration order, and the
// per-task directories are refreshed from the source whenever the
// root is looked up or enumerated.
type FS struct {
	src   SysSource
	alloc *mem.Allocator

	mu      sync.Mutex
	tag     vfs.BackendTag
	nextIno uint64
	root    *vfs.Inode
	fixed   []fixedEntry
	tasks   map[uint64]*taskDir
}

type taskDir struct {
	dir    *vfs.Inode
	status *vfs.Inode
}

var (
	_ = (vfs.Backend)((*FS)(nil))
	_ = (vfs.DirOpener)((*FS)(nil))
)

// New builds the file set for the given variant. Snapshot buffers are
// charged to alloc.
func New(src SysSource, alloc *mem.Allocator, variant Variant) *FS {
	fs := &FS{src: src, alloc: alloc, tasks: make(map[uint64]*taskDir)}
	fs.root = fs.newInode(abi.KindDirectory, &pnode{})
	fs.addFixed("cpuinfo", synthCPUInfo)
	fs.addFixed("meminfo", synthMemInfo)
	if variant == VariantFull {
		fs.addFixed("kernelinfo", synthKernelInfo)
	}
	fs.addFixed("mounts", synthMounts)
	return fs
}

func (fs *FS) addFixed(name string, fn synth) {
	in := fs.newInode(abi.KindPseudo, &pnode{synth: fn})
	fs.fixed = append(fs.fixed, fixedEntry{name: name, inode: in})
}

// newInode mints the next inode. Callers hold fs.mu once the
// filesystem is shared; construction in New runs single-threaded.
func (fs *FS) newInode(kind abi.FileKind, n *pnode) *vfs.Inode {
	fs.nextIno++
	return &vfs.Inode{ID: fs.nextIno, Kind: kind, Tag: fs.tag, Perm: abi.PermRead, Data: n}
}

func (fs *FS) BackendName() string { return "procfs" }

func (fs *FS) OnMount(tag vfs.BackendTag) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.tag = tag
	fs.root.Tag = tag
	for _, f := range fs.fixed {
		f.inode.Tag = tag
	}
}

func (fs *FS) Root() *vfs.Inode { return fs.root }

func (fs *FS) Lookup(dir *vfs.Inode, name string) (*vfs.Inode, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if dir == fs.root {
		for _, f := range fs.fixed {
			if f.name == name {
				return f.inode, abi.OK
			}
		}
		fs.refreshTasksLocked()
		if pid, err := strconv.ParseUint(name, 10, 64); err == nil {
			if td, ok := fs.tasks[pid]; ok {
				return td.dir, abi.OK
			}
		}
		return nil, abi.NotFound
	}
	n := dir.Data.(*pnode)
	if td, ok := fs.tasks[n.pid]; ok && td.dir == dir && name == "status" {
		return td.status, abi.OK
	}
	return nil, abi.NotFound
}

// refreshTasksLocked reconciles the per-task directories with the
// live task set. Directories of surviving tasks keep their inodes, so
// repeated enumerations of an unchanged set are identical.
func (fs *FS) refreshTasksLocked() {
	stats := fs.src.TaskStats()
	seen := make(map[uint64]bool, len(stats))
	for _, ts := range stats {
		seen[ts.Pid] = true
		if _, ok := fs.tasks[ts.Pid]; ok {
			continue
		}
		td := &taskDir{
			dir:    fs.newInode(abi.KindDirectory, &pnode{pid: ts.Pid}),
			status: fs.newInode(abi.KindPseudo, &pnode{synth: synthStatus, pid: ts.Pid}),
		}
		fs.tasks[ts.Pid] = td
	}
	for pid := range fs.tasks {
		if !seen[pid] {
			delete(fs.tasks, pid)
		}
	}
}

func (fs *FS) Open(_ context.Context, in *vfs.Inode, _ abi.OpenFlags) (vfs.Handle, abi.ErrorStatus) {
	n := in.Data.(*pnode)
	if n.synth == nil {
		return nil, abi.IsADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	text, code := n.synth(fs, n)
	if !code.Ok() {
		return nil, code
	}
	buf, code := fs.alloc.Grant(fs.alloc.FramesFor(uint64(len(text))))
	if !code.Ok() {
		return nil, code
	}
	copy(buf, text)
	s := &snapshot{owner: n, buf: buf, n: len(text)}
	if n.live == nil {
		n.live = make(map[*snapshot]struct{})
	}
	n.live[s] = struct{}{}
	return s, abi.OK
}

// Read serves the snapshot taken at open time; it never blocks.
func (fs *FS) Read(_ context.Context, h vfs.Handle, off uint64, dest []byte) (int, abi.ErrorStatus) {
	s := h.(*snapshot)
	if off >= uint64(s.n) {
		return 0, abi.OK
	}
	return copy(dest, s.buf[off:s.n]), abi.OK
}

// Stat reports the largest live snapshot as the size; a pseudo file
// with no open handle has no knowable size and reports 0.
func (fs *FS) Stat(in *vfs.Inode) (abi.FileAttr, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := in.Data.(*pnode)
	var size uint64
	for s := range n.live {
		if uint64(s.n) > size {
			size = uint64(s.n)
		}
	}
	return abi.FileAttr{Ino: in.ID, Kind: in.Kind, Size: size, Perm: in.Perm}, abi.OK
}

func (fs *FS) Release(h vfs.Handle) {
	s := h.(*snapshot)
	fs.mu.Lock()
	delete(s.owner.live, s)
	fs.mu.Unlock()
	fs.alloc.Release(s.buf)
}

func (fs *FS) OpenDir(dir *vfs.Inode) (vfs.DirStream, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if dir == fs.root {
		fs.refreshTasksLocked()
		list := make([]abi.DirEntry, 0, len(fs.fixed)+len(fs.tasks))
		for _, f := range fs.fixed {
			list = append(list, abi.DirEntry{Name: f.name, Ino: f.inode.ID, Kind: f.inode.Kind})
		}
		pids := make([]uint64, 0, len(fs.tasks))
		for pid := range fs.tasks {
			pids = append(pids, pid)
		}
		sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
		for _, pid := range pids {
			td := fs.tasks[pid]
			list = append(list, abi.DirEntry{
				Name: strconv.FormatUint(pid, 10),
				Ino:  td.dir.ID,
				Kind: abi.KindDirectory,
			})
		}
		return vfs.NewListDirStream(list), abi.OK
	}
	n := dir.Data.(*pnode)
	if td, ok := fs.tasks[n.pid]; ok && td.dir == dir {
		return vfs.NewListDirStream([]abi.DirEntry{
			{Name: "status", Ino: td.status.ID, Kind: abi.KindPseudo},
		}), abi.OK
	}
	return nil, abi.NotFound
}
