// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package userland holds the small programs that run on the kernel's
// system-call surface. Programs receive argv with the binary name at
// index 0, write results to descriptor 1, complaints to descriptor 2
// when it is bound, and exit with the status of the failing call.
package userland

import (
	"context"
	"fmt"

	"github.com/tern-os/tern/kernel"
)

// Program aliases the kernel's entry-point type so binaries declared
// here can be spawned directly.
type Program = kernel.Program

var table = map[string]Program{
	"mkdir": Mkdir,
	"touch": Touch,
	"cat":   Cat,
	"ls":    Ls,
	"stat":  Stat,
}

// Lookup resolves a binary name to its program.
func Lookup(name string) (Program, bool) {
	p, ok := table[name]
	return p, ok
}

// fprintf writes formatted text to a descriptor, retrying short
// writes. An unbound descriptor loses the output, matching consoles
// nobody wired up.
func fprintf(sys *kernel.Syscalls, fd int, format string, args ...interface{}) {
	ctx := context.Background()
	buf := []byte(fmt.Sprintf(format, args...))
	for len(buf) > 0 {
		n, code := sys.Write(ctx, fd, buf)
		if !code.Ok() || n == 0 {
			return
		}
		buf = buf[n:]
	}
}
