// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ramfs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

func buildArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	add := func(hdr *tar.Header, body []byte) {
		t.Helper()
		if body != nil {
			hdr.Size = int64(len(body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader(%s): %v", hdr.Name, err)
		}
		if body != nil {
			if _, err := tw.Write(body); err != nil {
				t.Fatalf("Write(%s): %v", hdr.Name, err)
			}
		}
	}
	add(&tar.Header{Name: "bin/", Typeflag: tar.TypeDir, Mode: 0755}, nil)
	add(&tar.Header{Name: "bin/init", Typeflag: tar.TypeReg, Mode: 0755}, []byte("\x7fELF"))
	add(&tar.Header{Name: "etc/issue", Typeflag: tar.TypeReg, Mode: 0644}, []byte("TernOS\n"))
	add(&tar.Header{Name: "etc/ro", Typeflag: tar.TypeReg, Mode: 0444}, []byte("locked"))
	add(&tar.Header{Name: "link", Typeflag: tar.TypeSymlink, Linkname: "etc/issue", Mode: 0777}, nil)
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	return buf.Bytes()
}

func TestUnpackArchive(t *testing.T) {
	v, fs := newMounted(t, 0)
	added, skipped, err := fs.UnpackArchive(bytes.NewReader(buildArchive(t)))
	if err != nil {
		t.Fatalf("UnpackArchive: %v", err)
	}
	if added != 4 || skipped != 1 {
		t.Errorf("got added=%d skipped=%d, want added=4 skipped=1", added, skipped)
	}

	f, code := v.Open(context.Background(), vfs.MustParse("/etc/issue"), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open /etc/issue: %v", code)
	}
	defer v.Close(f)
	buf := make([]byte, 32)
	n, _ := f.Read(context.Background(), buf)
	if got, want := string(buf[:n]), "TernOS\n"; got != want {
		t.Errorf("content: got %q, want %q", got, want)
	}

	// Mode bits survive: a 0444 member is not writable.
	if _, code := v.Open(context.Background(), vfs.MustParse("/etc/ro"), abi.OpenWrite); code != abi.PermissionDenied {
		t.Errorf("open r/o member for write: got %v, want %v", code, abi.PermissionDenied)
	}

	d, code := v.Open(context.Background(), vfs.MustParse("/etc"), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open /etc: %v", code)
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
		names = append(names, e.Name)
	}
	if diff := pretty.Compare(names, []string{"issue", "ro"}); diff != "" {
		t.Errorf("listing diff (-got +want):\n%s", diff)
	}
}

func TestUnpackCompressedArchive(t *testing.T) {
	plain := buildArchive(t)
	var gzbuf bytes.Buffer
	gz := gzip.NewWriter(&gzbuf)
	gz.Write(plain)
	gz.Close()

	_, fs := newMounted(t, 0)
	added, _, err := fs.UnpackCompressedArchive(&gzbuf)
	if err != nil {
		t.Fatalf("UnpackCompressedArchive: %v", err)
	}
	if added != 4 {
		t.Errorf("added: got %d, want 4", added)
	}
	if _, code := fs.Lookup(fs.Root(), "bin"); !code.Ok() {
		t.Errorf("bin missing after unpack: %v", code)
	}
}
