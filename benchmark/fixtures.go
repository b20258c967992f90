// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmark measures the hot paths of the hosted kernel:
// path parsing, resolution, stat, file I/O and the device stream.
package benchmark

import (
	"context"
	"fmt"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
	"github.com/tern-os/tern/ramfs"
	"github.com/tern-os/tern/vfs"
)

// populate mounts a fresh tree holding dirs directories with files
// small files each, returning every file path.
func populate(dirs, files int) (*vfs.VFS, []vfs.Path, error) {
	v := vfs.New()
	if code := v.Mount(vfs.MustParse("/"), ramfs.New(0)); !code.Ok() {
		return nil, nil, fmt.Errorf("mount: %v", code)
	}
	ctx := context.Background()
	content := []byte("0123456789abcdef")
	var paths []vfs.Path
	for d := 0; d < dirs; d++ {
		dir := fmt.Sprintf("/d%02d", d)
		if code := v.Mkdir(vfs.MustParse(dir), abi.PermRW); !code.Ok() {
			return nil, nil, fmt.Errorf("mkdir %s: %v", dir, code)
		}
		for i := 0; i < files; i++ {
			p := vfs.MustParse(fmt.Sprintf("%s/f%03d", dir, i))
			f, code := v.Open(ctx, p, abi.OpenWrite|abi.OpenCreate)
			if !code.Ok() {
				return nil, nil, fmt.Errorf("create %v: %v", p, code)
			}
			if _, code := f.Write(ctx, content); !code.Ok() {
				return nil, nil, fmt.Errorf("write %v: %v", p, code)
			}
			if code := v.Close(f); !code.Ok() {
				return nil, nil, fmt.Errorf("close %v: %v", p, code)
			}
			paths = append(paths, p)
		}
	}
	return v, paths, nil
}

// discard is a write-only device that accepts everything.
type discard struct{}

var _ = (devfs.Driver)((*discard)(nil))

func (discard) DriverName() string { return "null" }

func (discard) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	<-ctx.Done()
	return 0, abi.Interrupted
}

func (discard) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	return len(p), abi.OK
}

func (discard) Poll() bool { return false }
