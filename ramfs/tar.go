// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ramfs

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/tern-os/tern/abi"
)

// permFromMode maps the owner bits of a tar mode word.
func permFromMode(mode int64) abi.FilePerm {
	var p abi.FilePerm
	if mode&0400 != 0 {
		p |= abi.PermRead
	}
	if mode&0200 != 0 {
		p |= abi.PermWrite
	}
	if mode&0100 != 0 {
		p |= abi.PermExec
	}
	return p
}

// UnpackArchive loads a tar stream into the tree, creating parent
// directories as needed. Entry kinds without a ramfs representation
// (symlinks, device nodes, fifos) are skipped and counted. It
// returns the number of entries added.
func (fs *FS) UnpackArchive(r io.Reader) (added, skipped int, err error) {
	tr := tar.NewReader(r)

	var longName *string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return added, skipped, fmt.Errorf("ramfs: tar: %w", err)
		}
		if hdr.Typeflag == 'L' {
			buf := bytes.NewBuffer(make([]byte, 0, hdr.Size))
			io.Copy(buf, tr)
			s := buf.String()
			longName = &s
			continue
		}
		if longName != nil {
			hdr.Name = *longName
			longName = nil
		}

		dir, base := path.Split(path.Clean(hdr.Name))
		if base == "" || base == "." {
			continue
		}

		fs.mu.Lock()
		d, code := fs.mkdirAllLocked(dir)
		if !code.Ok() {
			fs.mu.Unlock()
			return added, skipped, fmt.Errorf("ramfs: tar entry %q: %v", hdr.Name, code)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if _, ok := d.children[base]; !ok {
				if _, code := fs.createLocked(d, base, abi.KindDirectory, permFromMode(hdr.Mode)); !code.Ok() {
					fs.mu.Unlock()
					return added, skipped, fmt.Errorf("ramfs: tar entry %q: %v", hdr.Name, code)
				}
				added++
			}
			fs.mu.Unlock()

		case tar.TypeReg:
			buf := bytes.NewBuffer(make([]byte, 0, hdr.Size))
			if _, err := io.Copy(buf, tr); err != nil {
				fs.mu.Unlock()
				return added, skipped, fmt.Errorf("ramfs: tar entry %q: %w", hdr.Name, err)
			}
			in, code := fs.createLocked(d, base, abi.KindRegular, permFromMode(hdr.Mode))
			if code == abi.AlreadyExists {
				// Later entries win, as with repeated archive
				// members.
				in = d.children[base].inode
				code = abi.OK
			}
			if !code.Ok() {
				fs.mu.Unlock()
				return added, skipped, fmt.Errorf("ramfs: tar entry %q: %v", hdr.Name, code)
			}
			n := fs.node(in)
			if fs.limit > 0 && fs.used+uint64(buf.Len()) > fs.limit {
				fs.mu.Unlock()
				return added, skipped, fmt.Errorf("ramfs: tar entry %q: %v", hdr.Name, abi.NoSpace)
			}
			fs.used -= uint64(len(n.data))
			n.data = buf.Bytes()
			fs.used += uint64(len(n.data))
			in.SizeHint = uint64(len(n.data))
			added++
			fs.mu.Unlock()

		default:
			skipped++
			fs.mu.Unlock()
		}
	}
	return added, skipped, nil
}

// UnpackCompressedArchive is UnpackArchive for gzip streams. The
// plain variant serves already-uncompressed ramdisks.
func (fs *FS) UnpackCompressedArchive(r io.Reader) (added, skipped int, err error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, 0, fmt.Errorf("ramfs: gzip: %w", err)
	}
	defer gz.Close()
	return fs.UnpackArchive(gz)
}

// mkdirAllLocked walks dir, creating missing directories. The tree
// lock must be held.
func (fs *FS) mkdirAllLocked(dir string) (*node, abi.ErrorStatus) {
	d := fs.root
	for _, comp := range strings.Split(dir, "/") {
		if comp == "" || comp == "." {
			continue
		}
		child, ok := d.children[comp]
		if !ok {
			in, code := fs.createLocked(d, comp, abi.KindDirectory, abi.PermRW)
			if !code.Ok() {
				return nil, code
			}
			child = fs.node(in)
		}
		if !child.inode.IsDir() {
			return nil, abi.NotADirectory
		}
		d = child
	}
	return d, abi.OK
}
