// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package userland

import (
	"context"

	"github.com/fatih/color"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/kernel"
)

// Mkdir creates each directory named in argv.
func Mkdir(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	if len(argv) < 2 {
		fprintf(sys, 2, "mkdir: missing directory path\n")
		return abi.NotEnoughArguments
	}
	for _, path := range argv[1:] {
		if code := sys.Mkdir(path, abi.PermRW); !code.Ok() {
			fprintf(sys, 2, "mkdir: %s: %v\n", path, code)
			return code
		}
	}
	return abi.OK
}

// Touch creates each named file, failing when one already exists.
func Touch(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	if len(argv) < 2 {
		fprintf(sys, 2, "touch: missing file path\n")
		return abi.NotEnoughArguments
	}
	ctx := context.Background()
	for _, path := range argv[1:] {
		if code := sys.Create(ctx, path); !code.Ok() {
			fprintf(sys, 2, "touch: %s: %v\n", path, code)
			return code
		}
	}
	return abi.OK
}

// Cat copies each named file to descriptor 1, a newline after each.
// Without arguments it echoes descriptor 0 until end of input.
func Cat(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	ctx := context.Background()
	if len(argv) < 2 {
		if code := copyFD(sys, 0, 1); !code.Ok() {
			fprintf(sys, 2, "cat: stdin: %v\n", code)
			return code
		}
		return abi.OK
	}
	for _, path := range argv[1:] {
		fd, code := sys.Open(ctx, path, abi.OpenRead)
		if !code.Ok() {
			fprintf(sys, 2, "cat: %s: %v\n", path, code)
			return code
		}
		code = copyFD(sys, fd, 1)
		sys.Close(fd)
		if !code.Ok() {
			fprintf(sys, 2, "cat: %s: %v\n", path, code)
			return code
		}
		fprintf(sys, 1, "\n")
	}
	return abi.OK
}

func copyFD(sys *kernel.Syscalls, src, dst int) abi.ErrorStatus {
	ctx := context.Background()
	buf := make([]byte, 512)
	for {
		n, code := sys.Read(ctx, src, buf)
		if !code.Ok() {
			return code
		}
		if n == 0 {
			return abi.OK
		}
		out := buf[:n]
		for len(out) > 0 {
			w, code := sys.Write(ctx, dst, out)
			if !code.Ok() {
				return code
			}
			out = out[w:]
		}
	}
}

// Ls lists a directory: directories first, then device and pseudo
// nodes, then regular files. The -r/--raw flags disable colour.
func Ls(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	ctx := context.Background()
	raw := false
	path := "."
	for _, arg := range argv[1:] {
		switch arg {
		case "--raw", "-r":
			raw = true
		case "--color", "-c":
			raw = false
		default:
			path = arg
		}
	}

	fd, code := sys.Open(ctx, path, abi.OpenRead)
	if !code.Ok() {
		fprintf(sys, 2, "ls: %s: %v\n", path, code)
		return code
	}
	defer sys.Close(fd)

	var dirs, other, files []string
	for {
		entry, ok, code := sys.ReadDir(fd)
		if !code.Ok() {
			fprintf(sys, 2, "ls: %s: %v\n", path, code)
			return code
		}
		if !ok {
			break
		}
		switch entry.Kind {
		case abi.KindDirectory:
			dirs = append(dirs, entry.Name)
		case abi.KindRegular:
			files = append(files, entry.Name)
		default:
			other = append(other, entry.Name)
		}
	}

	blue := color.New(color.FgBlue)
	red := color.New(color.FgRed)
	if raw {
		blue.DisableColor()
		red.DisableColor()
	} else {
		blue.EnableColor()
		red.EnableColor()
	}
	for _, d := range dirs {
		fprintf(sys, 1, "%s\n", blue.Sprint(d))
	}
	for _, o := range other {
		fprintf(sys, 1, "%s\n", red.Sprint(o))
	}
	for _, f := range files {
		fprintf(sys, 1, "%s\n", f)
	}
	return abi.OK
}

// Stat prints the metadata of each named path as key-value lines.
func Stat(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	if len(argv) < 2 {
		fprintf(sys, 2, "stat: missing file path\n")
		return abi.NotEnoughArguments
	}
	for _, path := range argv[1:] {
		attr, code := sys.Stat(path)
		if !code.Ok() {
			fprintf(sys, 2, "stat: %s: %v\n", path, code)
			return code
		}
		fprintf(sys, 1, "Path: %s\nKind: %v\nSize: %d\nInode: %d\nPerm: %s\n",
			path, attr.Kind, attr.Size, attr.Ino, permString(attr.Perm))
	}
	return abi.OK
}

func permString(p abi.FilePerm) string {
	b := []byte("---")
	if p&abi.PermRead != 0 {
		b[0] = 'r'
	}
	if p&abi.PermWrite != 0 {
		b[1] = 'w'
	}
	if p&abi.PermExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}
