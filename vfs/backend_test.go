// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/tern-os/tern/abi"
)

// testFS is a minimal in-memory backend for exercising the front
// door and the mount table.
type testFS struct {
	mu      sync.Mutex
	tag     BackendTag
	nextIno uint64
	root    *testNode
}

type testNode struct {
	inode    *Inode
	data     []byte
	children map[string]*testNode
}

func newTestFS() *testFS {
	fs := &testFS{nextIno: 1}
	fs.root = &testNode{children: map[string]*testNode{}}
	fs.root.inode = &Inode{ID: 1, Kind: abi.KindDirectory, Perm: abi.PermRW}
	fs.root.inode.Data = fs.root
	return fs
}

func (fs *testFS) BackendName() string { return "testfs" }

func (fs *testFS) OnMount(tag BackendTag) {
	fs.tag = tag
	fs.root.inode.Tag = tag
}

func (fs *testFS) Root() *Inode { return fs.root.inode }

func (fs *testFS) node(in *Inode) *testNode { return in.Data.(*testNode) }

func (fs *testFS) Lookup(dir *Inode, name string) (*Inode, abi.ErrorStatus) {
	if !dir.IsDir() {
		return nil, abi.NotADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	child, ok := fs.node(dir).children[name]
	if !ok {
		return nil, abi.NotFound
	}
	return child.inode, abi.OK
}

func (fs *testFS) Open(ctx context.Context, in *Inode, flags abi.OpenFlags) (Handle, abi.ErrorStatus) {
	if in.IsDir() {
		return nil, abi.IsADirectory
	}
	return fs.node(in), abi.OK
}

func (fs *testFS) Read(ctx context.Context, h Handle, off uint64, dest []byte) (int, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := h.(*testNode)
	if off >= uint64(len(n.data)) {
		return 0, abi.OK
	}
	return copy(dest, n.data[off:]), abi.OK
}

func (fs *testFS) Write(ctx context.Context, h Handle, off uint64, data []byte) (int, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n := h.(*testNode)
	if want := off + uint64(len(data)); want > uint64(len(n.data)) {
		grown := make([]byte, want)
		copy(grown, n.data)
		n.data = grown
	}
	return copy(n.data[off:], data), abi.OK
}

func (fs *testFS) Stat(in *Inode) (abi.FileAttr, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return abi.FileAttr{
		Ino:  in.ID,
		Kind: in.Kind,
		Size: uint64(len(fs.node(in).data)),
		Perm: in.Perm,
	}, abi.OK
}

func (fs *testFS) Release(h Handle) {}

func (fs *testFS) Create(dir *Inode, name string, kind abi.FileKind, perm abi.FilePerm) (*Inode, abi.ErrorStatus) {
	if !dir.IsDir() {
		return nil, abi.NotADirectory
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	d := fs.node(dir)
	if _, ok := d.children[name]; ok {
		return nil, abi.AlreadyExists
	}
	fs.nextIno++
	n := &testNode{}
	n.inode = &Inode{ID: fs.nextIno, Kind: kind, Tag: fs.tag, Perm: perm, Data: n}
	if kind == abi.KindDirectory {
		n.children = map[string]*testNode{}
	}
	d.children[name] = n
	return n.inode, abi.OK
}

func (fs *testFS) Unlink(dir *Inode, name string) abi.ErrorStatus {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	d := fs.node(dir)
	child, ok := d.children[name]
	if !ok {
		return abi.NotFound
	}
	if child.inode.IsDir() {
		return abi.IsADirectory
	}
	delete(d.children, name)
	return abi.OK
}

func (fs *testFS) OpenDir(dir *Inode) (DirStream, abi.ErrorStatus) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	d := fs.node(dir)
	names := make([]string, 0, len(d.children))
	for name := range d.children {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]abi.DirEntry, 0, len(names))
	for _, name := range names {
		c := d.children[name]
		entries = append(entries, abi.DirEntry{Name: name, Ino: c.inode.ID, Kind: c.inode.Kind})
	}
	return NewListDirStream(entries), abi.OK
}

var (
	_ = (Backend)((*testFS)(nil))
	_ = (Writer)((*testFS)(nil))
	_ = (Creater)((*testFS)(nil))
	_ = (Unlinker)((*testFS)(nil))
	_ = (DirOpener)((*testFS)(nil))
)

// newTestVFS mounts a fresh testFS at / and returns both.
func newTestVFS(t *testing.T) (*VFS, *testFS) {
	t.Helper()
	v := New()
	fs := newTestFS()
	if code := v.Mount(MustParse("/"), fs); !code.Ok() {
		t.Fatalf("mount /: %v", code)
	}
	return v, fs
}

// mustWriteFile creates a file with contents through the front door.
func mustWriteFile(t *testing.T, v *VFS, path string, data []byte) {
	t.Helper()
	f, code := v.Open(context.Background(), MustParse(path), abi.OpenWrite|abi.OpenCreate)
	if !code.Ok() {
		t.Fatalf("create %s: %v", path, code)
	}
	if _, code := f.Write(context.Background(), data); !code.Ok() {
		t.Fatalf("write %s: %v", path, code)
	}
	if code := v.Close(f); !code.Ok() {
		t.Fatalf("close %s: %v", path, code)
	}
}
