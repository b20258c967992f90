// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package procfs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

func synthMemInfo(fs *FS, _ *pnode) ([]byte, abi.ErrorStatus) {
	si := fs.src.SysInfo()
	var b bytes.Buffer
	fmt.Fprintf(&b, "MemTotal: %d\n", si.TotalMem)
	fmt.Fprintf(&b, "MemUsed: %d\n", si.UsedMem)
	fmt.Fprintf(&b, "MemFree: %d\n", si.TotalMem-si.UsedMem)
	fmt.Fprintf(&b, "Processes: %d\n", si.ProcessesCount)
	return b.Bytes(), abi.OK
}

func synthCPUInfo(fs *FS, _ *pnode) ([]byte, abi.ErrorStatus) {
	var b bytes.Buffer
	for i, c := range fs.src.CPUs() {
		fmt.Fprintf(&b, "cpu%d: %s %s\n", i, c.Vendor, c.Model)
	}
	return b.Bytes(), abi.OK
}

func synthKernelInfo(fs *FS, _ *pnode) ([]byte, abi.ErrorStatus) {
	name, build, bootID := fs.src.Kernel()
	var b bytes.Buffer
	fmt.Fprintf(&b, "Kernel: %s\n", name)
	fmt.Fprintf(&b, "Build: %s\n", build)
	fmt.Fprintf(&b, "BootID: %s\n", bootID)
	return b.Bytes(), abi.OK
}

// synthStatus renders the status file of one task. The task may have
// exited since its directory was looked up; that reads as NotFound.
func synthStatus(fs *FS, n *pnode) ([]byte, abi.ErrorStatus) {
	for _, ts := range fs.src.TaskStats() {
		if ts.Pid != n.pid {
			continue
		}
		var b bytes.Buffer
		fmt.Fprintf(&b, "Pid: %d\n", ts.Pid)
		fmt.Fprintf(&b, "Name: %s\n", ts.Name)
		fmt.Fprintf(&b, "State: %s\n", ts.State)
		fmt.Fprintf(&b, "Cwd: %s\n", ts.Cwd)
		fmt.Fprintf(&b, "OpenFiles: %d\n", ts.OpenFiles)
		return b.Bytes(), abi.OK
	}
	return nil, abi.NotFound
}

// synthMounts renders the mount table as Linux mountinfo records so
// stock parsers can consume it:
//
//	ID parent major:minor root mountpoint opts - fstype source superopts
func synthMounts(fs *FS, _ *pnode) ([]byte, abi.ErrorStatus) {
	mounts := fs.src.Mounts()
	var b bytes.Buffer
	for _, m := range mounts {
		opts := "rw"
		if m.ReadOnly {
			opts = "ro"
		}
		fmt.Fprintf(&b, "%d %d 0:%d / %s %s - %s %s %s\n",
			m.Tag, parentTag(mounts, m), m.Tag,
			escapeMountPath(m.Prefix), opts, m.Backend, m.Backend, opts)
	}
	return b.Bytes(), abi.OK
}

// parentTag is the tag of the longest proper ancestor prefix, 0 when
// the entry has none.
func parentTag(mounts []vfs.MountPoint, m vfs.MountPoint) vfs.BackendTag {
	var best vfs.BackendTag
	bestLen := -1
	for _, o := range mounts {
		if o.Tag == m.Tag || !isPathAncestor(o.Prefix, m.Prefix) {
			continue
		}
		if len(o.Prefix) > bestLen {
			best, bestLen = o.Tag, len(o.Prefix)
		}
	}
	return best
}

func isPathAncestor(anc, p string) bool {
	if anc == p {
		return false
	}
	if anc == "/" {
		return true
	}
	return strings.HasPrefix(p, anc+"/")
}

// escapeMountPath applies the mountinfo octal escapes.
func escapeMountPath(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case ' ', '\t', '\n', '\\':
			fmt.Fprintf(&b, "\\%03o", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
