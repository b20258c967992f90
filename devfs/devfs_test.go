// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devfs

import (
	"bytes"
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/kylelemons/godebug/pretty"
	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

// pipeDriver is a loopback device: writes feed reads through a
// bounded channel, so it exhibits blocking and backpressure.
type pipeDriver struct {
	name string
	ch   chan byte
}

func newPipe(name string, depth int) *pipeDriver {
	return &pipeDriver{name: name, ch: make(chan byte, depth)}
}

func (p *pipeDriver) DriverName() string { return p.name }

func (p *pipeDriver) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	select {
	case b := <-p.ch:
		return b, abi.OK
	case <-ctx.Done():
		return 0, abi.Interrupted
	}
}

func (p *pipeDriver) WriteBytes(data []byte) (int, abi.ErrorStatus) {
	for i := range data {
		select {
		case p.ch <- data[i]:
		default:
			return i, abi.OK
		}
	}
	return len(data), abi.OK
}

func (p *pipeDriver) Poll() bool { return len(p.ch) > 0 }

// recordDriver swallows writes into one stream and cannot be read.
type recordDriver struct {
	name string
	out  []byte
}

func (r *recordDriver) DriverName() string { return r.name }

func (r *recordDriver) ReadByte(context.Context) (byte, abi.ErrorStatus) {
	return 0, abi.NotSupported
}

func (r *recordDriver) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	r.out = append(r.out, p...)
	return len(p), abi.OK
}

func (r *recordDriver) Poll() bool { return false }

func newDevVFS(t *testing.T, drivers ...Driver) *vfs.VFS {
	t.Helper()
	fs := New()
	for _, d := range drivers {
		if code := fs.Register(d); !code.Ok() {
			t.Fatalf("register %s: %v", d.DriverName(), code)
		}
	}
	v := vfs.New()
	if code := v.Mount(vfs.MustParse("/dev"), fs); !code.Ok() {
		t.Fatalf("mount /dev: %v", code)
	}
	return v
}

func TestDeviceRoundTrip(t *testing.T) {
	v := newDevVFS(t, newPipe("loop0", 64))
	ctx := context.Background()

	f, code := v.Open(ctx, vfs.MustParse("/dev/loop0"), abi.OpenRead|abi.OpenWrite)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)

	msg := []byte("hello")
	if n, code := f.Write(ctx, msg); !code.Ok() || n != len(msg) {
		t.Fatalf("write: got (%d, %v), want (%d, OK)", n, code, len(msg))
	}
	buf := make([]byte, 8)
	n, code := f.Read(ctx, buf)
	if !code.Ok() || n != len(msg) {
		t.Fatalf("read: got (%d, %v), want (%d, OK)", n, code, len(msg))
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("read back %q, want %q", buf[:n], msg)
	}
}

func TestBlockingReadWakes(t *testing.T) {
	v := newDevVFS(t, newPipe("loop0", 8))
	ctx := context.Background()

	f, code := v.Open(ctx, vfs.MustParse("/dev/loop0"), abi.OpenRead|abi.OpenWrite)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)

	var g errgroup.Group
	g.Go(func() error {
		buf := make([]byte, 4)
		n, code := f.Read(ctx, buf)
		if !code.Ok() || n == 0 {
			t.Errorf("blocked read: got (%d, %v), want bytes", n, code)
		}
		return nil
	})
	w, code := v.Open(ctx, vfs.MustParse("/dev/loop0"), abi.OpenWrite)
	if !code.Ok() {
		t.Fatalf("open writer: %v", code)
	}
	defer v.Close(w)
	if _, code := w.Write(ctx, []byte("x")); !code.Ok() {
		t.Fatalf("write: %v", code)
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestReadCancellation(t *testing.T) {
	v := newDevVFS(t, newPipe("loop0", 8))

	f, code := v.Open(context.Background(), vfs.MustParse("/dev/loop0"), abi.OpenRead|abi.OpenWrite)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)

	ctx, cancel := context.WithCancel(context.Background())
	var g errgroup.Group
	g.Go(func() error {
		buf := make([]byte, 4)
		n, code := f.Read(ctx, buf)
		if code != abi.Interrupted || n != 0 {
			t.Errorf("cancelled read: got (%d, %v), want (0, Interrupted)", n, code)
		}
		return nil
	})
	cancel()
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	// The descriptor survives the interruption.
	bg := context.Background()
	if _, code := f.Write(bg, []byte("y")); !code.Ok() {
		t.Fatalf("write after cancel: %v", code)
	}
	buf := make([]byte, 1)
	if n, code := f.Read(bg, buf); !code.Ok() || n != 1 || buf[0] != 'y' {
		t.Errorf("read after cancel: got (%d, %v, %q)", n, code, buf[:n])
	}
}

func TestNonBlockingRead(t *testing.T) {
	v := newDevVFS(t, newPipe("loop0", 8))
	ctx := context.Background()

	f, code := v.Open(ctx, vfs.MustParse("/dev/loop0"), abi.OpenRead|abi.OpenWrite|abi.OpenNonBlock)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)

	buf := make([]byte, 4)
	if n, code := f.Read(ctx, buf); code != abi.Busy || n != 0 {
		t.Errorf("empty nonblocking read: got (%d, %v), want (0, Busy)", n, code)
	}
	if _, code := f.Write(ctx, []byte("ab")); !code.Ok() {
		t.Fatalf("write: %v", code)
	}
	if n, code := f.Read(ctx, buf); !code.Ok() || n != 2 {
		t.Errorf("nonblocking read: got (%d, %v), want (2, OK)", n, code)
	}
}

func TestShortWrite(t *testing.T) {
	v := newDevVFS(t, newPipe("loop0", 4))
	ctx := context.Background()

	f, code := v.Open(ctx, vfs.MustParse("/dev/loop0"), abi.OpenRead|abi.OpenWrite)
	if !code.Ok() {
		t.Fatalf("open: %v", code)
	}
	defer v.Close(f)

	n, code := f.Write(ctx, []byte("abcdef"))
	if !code.Ok() || n != 4 {
		t.Fatalf("overfull write: got (%d, %v), want (4, OK)", n, code)
	}
	buf := make([]byte, 4)
	if n, code := f.Read(ctx, buf); !code.Ok() || n != 4 {
		t.Fatalf("drain: got (%d, %v)", n, code)
	}
	if n, code := f.Write(ctx, []byte("ef")); !code.Ok() || n != 2 {
		t.Errorf("retry: got (%d, %v), want (2, OK)", n, code)
	}
}

func TestWriteContiguity(t *testing.T) {
	rec := &recordDriver{name: "rec0"}
	v := newDevVFS(t, rec)
	ctx := context.Background()

	const rounds = 100
	var g errgroup.Group
	for _, c := range []byte{'a', 'b'} {
		c := c
		g.Go(func() error {
			f, code := v.Open(ctx, vfs.MustParse("/dev/rec0"), abi.OpenWrite)
			if !code.Ok() {
				t.Errorf("open: %v", code)
				return nil
			}
			defer v.Close(f)
			chunk := bytes.Repeat([]byte{c}, 4)
			for i := 0; i < rounds; i++ {
				if n, code := f.Write(ctx, chunk); !code.Ok() || n != 4 {
					t.Errorf("write: got (%d, %v)", n, code)
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if len(rec.out) != 2*rounds*4 {
		t.Fatalf("stream length: got %d, want %d", len(rec.out), 2*rounds*4)
	}
	for i := 0; i < len(rec.out); i += 4 {
		chunk := rec.out[i : i+4]
		if !bytes.Equal(chunk, bytes.Repeat(chunk[:1], 4)) {
			t.Fatalf("torn write at %d: %q", i, chunk)
		}
	}
}

func TestDeviceTree(t *testing.T) {
	v := newDevVFS(t, newPipe("serial", 8), newPipe("kbd", 8))
	ctx := context.Background()

	d, code := v.Open(ctx, vfs.MustParse("/dev"), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open dir: %v", code)
	}
	defer v.Close(d)
	var names []string
	for {
		e, ok, code := d.ReadDir()
		if !code.Ok() {
			t.Fatalf("readdir: %v", code)
		}
		if !ok {
			break
		}
		if e.Kind != abi.KindDevice {
			t.Errorf("%s kind: got %v, want %v", e.Name, e.Kind, abi.KindDevice)
		}
		names = append(names, e.Name)
	}
	if diff := pretty.Compare(names, []string{"kbd", "serial"}); diff != "" {
		t.Errorf("listing diff (-got +want):\n%s", diff)
	}

	attr, code := v.Stat(vfs.MustParse("/dev/serial"))
	if !code.Ok() || attr.Kind != abi.KindDevice {
		t.Errorf("stat: got (%+v, %v)", attr, code)
	}
	if code := v.Unlink(vfs.MustParse("/dev/serial")); code != abi.NotSupported {
		t.Errorf("unlink: got %v, want %v", code, abi.NotSupported)
	}
	if code := v.Truncate(vfs.MustParse("/dev/serial"), 0); code != abi.NotSupported {
		t.Errorf("truncate: got %v, want %v", code, abi.NotSupported)
	}
}

func TestRegisterCollision(t *testing.T) {
	fs := New()
	if code := fs.Register(newPipe("serial", 1)); !code.Ok() {
		t.Fatalf("register: %v", code)
	}
	if code := fs.Register(newPipe("serial", 1)); code != abi.AlreadyExists {
		t.Errorf("second register: got %v, want %v", code, abi.AlreadyExists)
	}
}
