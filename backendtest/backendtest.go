// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backendtest holds conformance cases for read-write
// filesystem backends. Each case drives a freshly mounted tree
// through the front door; backends run the whole table from their
// own tests.
package backendtest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

// All holds a map of all conformance cases.
var All = map[string]func(*testing.T, *vfs.VFS){
	"FileBasic":            FileBasic,
	"AppendWrite":          AppendWrite,
	"TruncateFile":         TruncateFile,
	"TruncateNoFile":       TruncateNoFile,
	"ExclusiveCreate":      ExclusiveCreate,
	"MkdirStat":            MkdirStat,
	"ReadDirNames":         ReadDirNames,
	"ReadDirPicksUpCreate": ReadDirPicksUpCreate,
	"UnlinkOpenBusy":       UnlinkOpenBusy,
	"UnlinkDirectory":      UnlinkDirectory,
	"EOFAtSize":            EOFAtSize,
	"ParallelCreate":       ParallelCreate,
	"SyncExisting":         SyncExisting,
}

// Run mounts a fresh backend from newFS for every case in All.
func Run(t *testing.T, newFS func() vfs.Backend) {
	names := make([]string, 0, len(All))
	for name := range All {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			v := vfs.New()
			if code := v.Mount(vfs.MustParse("/"), newFS()); !code.Ok() {
				t.Fatalf("mount: %v", code)
			}
			All[name](t, v)
		})
	}
}

func writeFile(t *testing.T, v *vfs.VFS, path string, content []byte) {
	t.Helper()
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse(path), abi.OpenWrite|abi.OpenCreate)
	if !code.Ok() {
		t.Fatalf("create %s: %v", path, code)
	}
	for len(content) > 0 {
		n, code := f.Write(ctx, content)
		if !code.Ok() {
			t.Fatalf("write %s: %v", path, code)
		}
		content = content[n:]
	}
	if code := v.Close(f); !code.Ok() {
		t.Fatalf("close %s: %v", path, code)
	}
}

func readFile(t *testing.T, v *vfs.VFS, path string) []byte {
	t.Helper()
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse(path), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open %s: %v", path, code)
	}
	defer v.Close(f)
	var out []byte
	buf := make([]byte, 256)
	for {
		n, code := f.Read(ctx, buf)
		if !code.Ok() {
			t.Fatalf("read %s: %v", path, code)
		}
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

func FileBasic(t *testing.T, v *vfs.VFS) {
	content := []byte("hello world")
	writeFile(t, v, "/file", content)

	if got := readFile(t, v, "/file"); !bytes.Equal(got, content) {
		t.Errorf("read back: got %q, want %q", got, content)
	}
	attr, code := v.Stat(vfs.MustParse("/file"))
	if !code.Ok() {
		t.Fatalf("stat: %v", code)
	}
	if attr.Kind != abi.KindRegular {
		t.Errorf("kind: got %v, want %v", attr.Kind, abi.KindRegular)
	}
	if attr.Size != uint64(len(content)) {
		t.Errorf("size: got %d, want %d", attr.Size, len(content))
	}
}

func AppendWrite(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/log", []byte("one"))
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse("/log"), abi.OpenWrite|abi.OpenAppend)
	if !code.Ok() {
		t.Fatalf("open append: %v", code)
	}
	if _, code := f.Write(ctx, []byte("two")); !code.Ok() {
		t.Fatalf("write: %v", code)
	}
	v.Close(f)
	if got := readFile(t, v, "/log"); string(got) != "onetwo" {
		t.Errorf("got %q, want %q", got, "onetwo")
	}
}

func TruncateFile(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/file", []byte("hello world"))
	if code := v.Truncate(vfs.MustParse("/file"), 5); !code.Ok() {
		t.Fatalf("truncate: %v", code)
	}
	if got := readFile(t, v, "/file"); string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	// Growing zero-fills.
	if code := v.Truncate(vfs.MustParse("/file"), 7); !code.Ok() {
		t.Fatalf("truncate up: %v", code)
	}
	if got := readFile(t, v, "/file"); string(got) != "hello\x00\x00" {
		t.Errorf("got %q, want %q", got, "hello\x00\x00")
	}
}

func TruncateNoFile(t *testing.T, v *vfs.VFS) {
	if code := v.Truncate(vfs.MustParse("/missing"), 0); code != abi.NotFound {
		t.Errorf("got %v, want %v", code, abi.NotFound)
	}
}

func ExclusiveCreate(t *testing.T, v *vfs.VFS) {
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse("/once"), abi.CreateNew)
	if !code.Ok() {
		t.Fatalf("create: %v", code)
	}
	v.Close(f)
	if _, code := v.Open(ctx, vfs.MustParse("/once"), abi.CreateNew); code != abi.AlreadyExists {
		t.Errorf("second create: got %v, want %v", code, abi.AlreadyExists)
	}
}

func MkdirStat(t *testing.T, v *vfs.VFS) {
	if code := v.Mkdir(vfs.MustParse("/sub"), abi.PermRW); !code.Ok() {
		t.Fatalf("mkdir: %v", code)
	}
	attr, code := v.Stat(vfs.MustParse("/sub"))
	if !code.Ok() || attr.Kind != abi.KindDirectory {
		t.Errorf("stat: got (%v, %v), want a directory", attr.Kind, code)
	}
	if code := v.Mkdir(vfs.MustParse("/sub"), abi.PermRW); code != abi.AlreadyExists {
		t.Errorf("repeat mkdir: got %v, want %v", code, abi.AlreadyExists)
	}
}

func readNames(t *testing.T, v *vfs.VFS, path string) []string {
	t.Helper()
	f, code := v.Open(context.Background(), vfs.MustParse(path), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open %s: %v", path, code)
	}
	defer v.Close(f)
	var names []string
	for {
		e, ok, code := f.ReadDir()
		if !code.Ok() {
			t.Fatalf("readdir: %v", code)
		}
		if !ok {
			return names
		}
		names = append(names, e.Name)
	}
}

func ReadDirNames(t *testing.T, v *vfs.VFS) {
	for _, name := range []string{"c", "a", "b"} {
		writeFile(t, v, "/"+name, []byte(name))
	}
	got := readNames(t, v, "/")
	want := []string{"a", "b", "c"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func ReadDirPicksUpCreate(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/first", nil)
	if got := readNames(t, v, "/"); len(got) != 1 {
		t.Fatalf("got %v, want one entry", got)
	}
	writeFile(t, v, "/second", nil)
	got := readNames(t, v, "/")
	if len(got) != 2 {
		t.Errorf("got %v, want two entries", got)
	}
}

func UnlinkOpenBusy(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/pinned", []byte("x"))
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse("/pinned"), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	if code := v.Unlink(vfs.MustParse("/pinned")); code != abi.Busy {
		t.Errorf("unlink while open: got %v, want %v", code, abi.Busy)
	}
	v.Close(f)
	if code := v.Unlink(vfs.MustParse("/pinned")); !code.Ok() {
		t.Errorf("unlink after close: %v", code)
	}
	if _, code := v.Stat(vfs.MustParse("/pinned")); code != abi.NotFound {
		t.Errorf("stat after unlink: got %v, want %v", code, abi.NotFound)
	}
}

func UnlinkDirectory(t *testing.T, v *vfs.VFS) {
	if code := v.Mkdir(vfs.MustParse("/d"), abi.PermRW); !code.Ok() {
		t.Fatalf("mkdir: %v", code)
	}
	if code := v.Unlink(vfs.MustParse("/d")); code != abi.IsADirectory {
		t.Errorf("got %v, want %v", code, abi.IsADirectory)
	}
}

func EOFAtSize(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/small", []byte("ab"))
	ctx := context.Background()
	f, code := v.Open(ctx, vfs.MustParse("/small"), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)
	buf := make([]byte, 8)
	n, code := f.Read(ctx, buf)
	if !code.Ok() || n != 2 {
		t.Fatalf("read: got (%d, %v), want (2, OK)", n, code)
	}
	n, code = f.Read(ctx, buf)
	if !code.Ok() || n != 0 {
		t.Errorf("read at size: got (%d, %v), want (0, OK)", n, code)
	}
}

func ParallelCreate(t *testing.T, v *vfs.VFS) {
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("/par%d", i)
		g.Go(func() error {
			ctx := context.Background()
			f, code := v.Open(ctx, vfs.MustParse(name), abi.OpenWrite|abi.OpenCreate)
			if !code.Ok() {
				return fmt.Errorf("create %s: %v", name, code)
			}
			if _, code := f.Write(ctx, []byte(name)); !code.Ok() {
				return fmt.Errorf("write %s: %v", name, code)
			}
			if code := v.Close(f); !code.Ok() {
				return fmt.Errorf("close %s: %v", name, code)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := readNames(t, v, "/"); len(got) != 8 {
		t.Errorf("got %v, want 8 entries", got)
	}
}

func SyncExisting(t *testing.T, v *vfs.VFS) {
	writeFile(t, v, "/durable", []byte("x"))
	if code := v.Sync(vfs.MustParse("/durable")); !code.Ok() {
		t.Errorf("sync: %v", code)
	}
	if code := v.Sync(vfs.MustParse("/missing")); code != abi.NotFound {
		t.Errorf("sync missing: got %v, want %v", code, abi.NotFound)
	}
}
