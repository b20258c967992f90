// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package userland

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/internal/testutil"
	"github.com/tern-os/tern/kernel"
	"github.com/tern-os/tern/kernel/task"
	"github.com/tern-os/tern/vfs"
)

// harness drives programs the way init would: a shell task owns the
// descriptors named by each child's metadata.
type harness struct {
	t     *testing.T
	k     *kernel.Kernel
	shell *task.Task
	n     int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	k := testutil.NewKernel(t)
	shell, code := k.Tasks().Spawn(k.VFS(), nil, "shell", abi.TaskMetadata{}, 0)
	if !code.Ok() {
		t.Fatalf("spawn shell: %v", code)
	}
	shell.MarkRunning()
	return &harness{t: t, k: k, shell: shell}
}

// openFD opens path into the shell's descriptor table.
func (h *harness) openFD(path string, flags abi.OpenFlags) int {
	h.t.Helper()
	f, code := h.k.VFS().Open(context.Background(), vfs.MustParse(path), flags)
	if !code.Ok() {
		h.t.Fatalf("open %s: %v", path, code)
	}
	return h.shell.FDs().Allocate(f)
}

// run spawns the named binary with the given stdio and waits for it.
func (h *harness) run(meta abi.TaskMetadata, flags abi.SpawnFlags, name string, args ...string) abi.ErrorStatus {
	h.t.Helper()
	prog, ok := Lookup(name)
	if !ok {
		h.t.Fatalf("no binary %q", name)
	}
	argv := append([]string{name}, args...)
	tk, code := h.k.Spawn(h.shell, name, prog, argv, meta, flags)
	if !code.Ok() {
		h.t.Fatalf("spawn %s: %v", name, code)
	}
	exit, code := h.k.Tasks().Wait(context.Background(), tk.Pid())
	if !code.Ok() {
		h.t.Fatalf("wait %s: %v", name, code)
	}
	return exit
}

// runCapture runs a binary with stdout and stderr captured to files.
func (h *harness) runCapture(name string, args ...string) (stdout, stderr string, exit abi.ErrorStatus) {
	h.t.Helper()
	h.n++
	outPath := fmt.Sprintf("/tmp/.out.%d", h.n)
	errPath := fmt.Sprintf("/tmp/.err.%d", h.n)
	outFD := h.openFD(outPath, abi.OpenWrite|abi.OpenCreate)
	errFD := h.openFD(errPath, abi.OpenWrite|abi.OpenCreate)
	meta := abi.TaskMetadata{
		Stdout: abi.SomeFD(uint64(outFD)),
		Stdin:  abi.NoneFD(),
		Stderr: abi.SomeFD(uint64(errFD)),
	}
	exit = h.run(meta, 0, name, args...)
	return h.readFile(outPath), h.readFile(errPath), exit
}

// readFile reads the whole of path through a fresh descriptor.
func (h *harness) readFile(path string) string {
	h.t.Helper()
	ctx := context.Background()
	f, code := h.k.VFS().Open(ctx, vfs.MustParse(path), abi.OpenRead)
	if !code.Ok() {
		h.t.Fatalf("open %s: %v", path, code)
	}
	defer h.k.VFS().Close(f)
	var out []byte
	buf := make([]byte, 256)
	for {
		n, code := f.Read(ctx, buf)
		if !code.Ok() {
			h.t.Fatalf("read %s: %v", path, code)
		}
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func (h *harness) writeFile(path, content string) {
	h.t.Helper()
	ctx := context.Background()
	f, code := h.k.VFS().Open(ctx, vfs.MustParse(path), abi.OpenWrite|abi.OpenCreate)
	if !code.Ok() {
		h.t.Fatalf("create %s: %v", path, code)
	}
	defer h.k.VFS().Close(f)
	if _, code := f.Write(ctx, []byte(content)); !code.Ok() {
		h.t.Fatalf("write %s: %v", path, code)
	}
}

func TestMkdir(t *testing.T) {
	h := newHarness(t)
	if _, stderr, exit := h.runCapture("mkdir", "/tmp/a"); exit != abi.OK {
		t.Fatalf("mkdir: got (%v, %q)", exit, stderr)
	}
	attr, code := h.k.VFS().Stat(vfs.MustParse("/tmp/a"))
	if !code.Ok() || attr.Kind != abi.KindDirectory {
		t.Errorf("stat: got (%v, %v), want a directory", attr.Kind, code)
	}

	_, stderr, exit := h.runCapture("mkdir", "/tmp/a")
	if exit != abi.AlreadyExists {
		t.Errorf("repeat mkdir: got %v, want %v", exit, abi.AlreadyExists)
	}
	if want := "mkdir: /tmp/a: AlreadyExists\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
}

func TestMkdirMissingOperand(t *testing.T) {
	h := newHarness(t)
	_, stderr, exit := h.runCapture("mkdir")
	if exit != abi.NotEnoughArguments {
		t.Errorf("exit: got %v, want %v", exit, abi.NotEnoughArguments)
	}
	if want := "mkdir: missing directory path\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
}

func TestTouch(t *testing.T) {
	h := newHarness(t)
	if _, _, exit := h.runCapture("touch", "/tmp/f"); exit != abi.OK {
		t.Fatalf("touch: %v", exit)
	}
	attr, code := h.k.VFS().Stat(vfs.MustParse("/tmp/f"))
	if !code.Ok() || attr.Kind != abi.KindRegular || attr.Size != 0 {
		t.Errorf("stat: got (%v, %d, %v)", attr.Kind, attr.Size, code)
	}

	_, stderr, exit := h.runCapture("touch", "/tmp/f")
	if exit != abi.AlreadyExists {
		t.Errorf("repeat touch: got %v, want %v", exit, abi.AlreadyExists)
	}
	if want := "touch: /tmp/f: AlreadyExists\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
}

func TestCatFile(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/tmp/msg", "hello world")
	stdout, _, exit := h.runCapture("cat", "/tmp/msg")
	if exit != abi.OK {
		t.Fatalf("cat: %v", exit)
	}
	if want := "hello world\n"; stdout != want {
		t.Errorf("stdout: got %q, want %q", stdout, want)
	}
}

func TestCatMissingFile(t *testing.T) {
	h := newHarness(t)
	stdout, stderr, exit := h.runCapture("cat", "/tmp/nope")
	if exit != abi.NotFound {
		t.Errorf("exit: got %v, want %v", exit, abi.NotFound)
	}
	if want := "cat: /tmp/nope: NotFound\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
	if stdout != "" {
		t.Errorf("stdout: got %q, want empty", stdout)
	}
}

func TestCatStdin(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/tmp/in", "piped\n")
	h.n++
	outPath := fmt.Sprintf("/tmp/.out.%d", h.n)
	meta := abi.TaskMetadata{
		Stdout: abi.SomeFD(uint64(h.openFD(outPath, abi.OpenWrite|abi.OpenCreate))),
		Stdin:  abi.SomeFD(uint64(h.openFD("/tmp/in", abi.OpenRead))),
		Stderr: abi.NoneFD(),
	}
	if exit := h.run(meta, 0, "cat"); exit != abi.OK {
		t.Fatalf("cat: %v", exit)
	}
	if got := h.readFile(outPath); got != "piped\n" {
		t.Errorf("stdout: got %q, want %q", got, "piped\n")
	}
}

func TestCatStdinUnbound(t *testing.T) {
	h := newHarness(t)
	_, stderr, exit := h.runCapture("cat")
	if exit != abi.BadDescriptor {
		t.Errorf("exit: got %v, want %v", exit, abi.BadDescriptor)
	}
	if want := "cat: stdin: BadDescriptor\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
}

func TestLsDevices(t *testing.T) {
	h := newHarness(t)
	stdout, _, exit := h.runCapture("ls", "--raw", "/dev")
	if exit != abi.OK {
		t.Fatalf("ls: %v", exit)
	}
	if want := "fb0\nkbd\nserial\n"; stdout != want {
		t.Errorf("listing: got %q, want %q", stdout, want)
	}
}

func TestLsGroupsAndColor(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/tmp/zfile", "x")
	if exit := h.run(abi.TaskMetadata{}, 0, "mkdir", "/tmp/adir"); exit != abi.OK {
		t.Fatalf("mkdir: %v", exit)
	}

	stdout, _, exit := h.runCapture("ls", "--raw", "/tmp")
	if exit != abi.OK {
		t.Fatalf("ls: %v", exit)
	}
	// Directories come before regular files regardless of name.
	if !strings.HasPrefix(stdout, "adir\n") {
		t.Errorf("listing does not lead with the directory: %q", stdout)
	}
	if !strings.Contains(stdout, "zfile\n") {
		t.Errorf("listing misses the file: %q", stdout)
	}

	colored, _, exit := h.runCapture("ls", "/tmp")
	if exit != abi.OK {
		t.Fatalf("ls: %v", exit)
	}
	if !strings.Contains(colored, "\x1b[") {
		t.Errorf("colored listing has no escape codes: %q", colored)
	}
}

func TestLsRelativeCwd(t *testing.T) {
	h := newHarness(t)
	h.shell.Chdir(vfs.MustParse("/dev"))
	h.n++
	outPath := fmt.Sprintf("/tmp/.out.%d", h.n)
	meta := abi.TaskMetadata{
		Stdout: abi.SomeFD(uint64(h.openFD(outPath, abi.OpenWrite|abi.OpenCreate))),
	}
	if exit := h.run(meta, abi.CloneCwd, "ls", "--raw"); exit != abi.OK {
		t.Fatalf("ls: %v", exit)
	}
	if got := h.readFile(outPath); got != "fb0\nkbd\nserial\n" {
		t.Errorf("listing: got %q, want %q", got, "fb0\nkbd\nserial\n")
	}
}

func TestStat(t *testing.T) {
	h := newHarness(t)
	h.writeFile("/tmp/s", "abc")
	attr, code := h.k.VFS().Stat(vfs.MustParse("/tmp/s"))
	if !code.Ok() {
		t.Fatalf("stat: %v", code)
	}

	stdout, _, exit := h.runCapture("stat", "/tmp/s")
	if exit != abi.OK {
		t.Fatalf("stat: %v", exit)
	}
	want := fmt.Sprintf("Path: /tmp/s\nKind: Regular\nSize: 3\nInode: %d\nPerm: rw-\n", attr.Ino)
	if stdout != want {
		t.Errorf("stdout: got %q, want %q", stdout, want)
	}
}

func TestStatMissingOperand(t *testing.T) {
	h := newHarness(t)
	_, stderr, exit := h.runCapture("stat")
	if exit != abi.NotEnoughArguments {
		t.Errorf("exit: got %v, want %v", exit, abi.NotEnoughArguments)
	}
	if want := "stat: missing file path\n"; stderr != want {
		t.Errorf("stderr: got %q, want %q", stderr, want)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("gcc"); ok {
		t.Errorf("Lookup(gcc): got ok, want miss")
	}
}
