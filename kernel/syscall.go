// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"context"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/kernel/task"
	"github.com/tern-os/tern/vfs"
)

// Syscalls is the system-call surface bound to one task. Every
// program receives its own at spawn; relative paths resolve against
// the task's working directory before they reach the mount tree.
type Syscalls struct {
	k    *Kernel
	task *task.Task
}

// Task returns the calling task.
func (s *Syscalls) Task() *task.Task {
	return s.task
}

func (s *Syscalls) resolve(raw string) (vfs.Path, abi.ErrorStatus) {
	p, code := vfs.Parse(raw)
	if !code.Ok() {
		return vfs.Path{}, code
	}
	if !p.IsAbs() {
		p = s.task.Cwd().Join(p)
	}
	return p, abi.OK
}

// Open opens path and binds it to the lowest free descriptor.
func (s *Syscalls) Open(ctx context.Context, path string, flags abi.OpenFlags) (int, abi.ErrorStatus) {
	p, code := s.resolve(path)
	if !code.Ok() {
		return -1, code
	}
	f, code := s.k.vfs.Open(ctx, p, flags)
	if !code.Ok() {
		return -1, code
	}
	return s.task.FDs().Allocate(f), abi.OK
}

// Close releases the descriptor. A vacant slot yields BadDescriptor.
func (s *Syscalls) Close(fd int) abi.ErrorStatus {
	f, code := s.task.FDs().Release(fd)
	if !code.Ok() {
		return code
	}
	return s.k.vfs.Close(f)
}

func (s *Syscalls) Read(ctx context.Context, fd int, dest []byte) (int, abi.ErrorStatus) {
	f, code := s.task.FDs().Get(fd)
	if !code.Ok() {
		return 0, code
	}
	return f.Read(ctx, dest)
}

func (s *Syscalls) Write(ctx context.Context, fd int, data []byte) (int, abi.ErrorStatus) {
	f, code := s.task.FDs().Get(fd)
	if !code.Ok() {
		return 0, code
	}
	return f.Write(ctx, data)
}

// Create makes path exist as an empty regular file; it fails with
// AlreadyExists when the path already resolves.
func (s *Syscalls) Create(ctx context.Context, path string) abi.ErrorStatus {
	p, code := s.resolve(path)
	if !code.Ok() {
		return code
	}
	f, code := s.k.vfs.Open(ctx, p, abi.CreateNew)
	if !code.Ok() {
		return code
	}
	return s.k.vfs.Close(f)
}

func (s *Syscalls) Mkdir(path string, perm abi.FilePerm) abi.ErrorStatus {
	p, code := s.resolve(path)
	if !code.Ok() {
		return code
	}
	return s.k.vfs.Mkdir(p, perm)
}

// ReadDir yields the next entry of an open directory. ok is false at
// the end of the stream.
func (s *Syscalls) ReadDir(fd int) (entry abi.DirEntry, ok bool, code abi.ErrorStatus) {
	f, code := s.task.FDs().Get(fd)
	if !code.Ok() {
		return abi.DirEntry{}, false, code
	}
	return f.ReadDir()
}

func (s *Syscalls) Stat(path string) (abi.FileAttr, abi.ErrorStatus) {
	p, code := s.resolve(path)
	if !code.Ok() {
		return abi.FileAttr{}, code
	}
	return s.k.vfs.Stat(p)
}

func (s *Syscalls) Truncate(path string, size uint64) abi.ErrorStatus {
	p, code := s.resolve(path)
	if !code.Ok() {
		return code
	}
	return s.k.vfs.Truncate(p, size)
}

func (s *Syscalls) Sync(path string) abi.ErrorStatus {
	p, code := s.resolve(path)
	if !code.Ok() {
		return code
	}
	return s.k.vfs.Sync(p)
}

// Dup clones fd onto a new descriptor sharing the same open file and
// cursor.
func (s *Syscalls) Dup(fd int) (int, abi.ErrorStatus) {
	return s.task.FDs().Dup(fd)
}

// Chdir moves the task's working directory.
func (s *Syscalls) Chdir(path string) abi.ErrorStatus {
	p, code := s.resolve(path)
	if !code.Ok() {
		return code
	}
	attr, code := s.k.vfs.Stat(p)
	if !code.Ok() {
		return code
	}
	if attr.Kind != abi.KindDirectory {
		return abi.NotADirectory
	}
	s.task.Chdir(p)
	return abi.OK
}

// Getcwd reports the task's working directory as a canonical path.
func (s *Syscalls) Getcwd() string {
	return s.task.Cwd().String()
}

// SysInfo fills the memory and process counters.
func (s *Syscalls) SysInfo() abi.SysInfo {
	return s.k.SysInfo()
}

// Spawn starts prog as a child task and returns its pid.
func (s *Syscalls) Spawn(name string, prog Program, argv []string, meta abi.TaskMetadata, flags abi.SpawnFlags) (uint64, abi.ErrorStatus) {
	t, code := s.k.Spawn(s.task, name, prog, argv, meta, flags)
	if !code.Ok() {
		return 0, code
	}
	return t.Pid(), abi.OK
}

// Wait blocks until pid exits and reaps it, returning the exit
// status. Waiting again for the same pid yields NotFound.
func (s *Syscalls) Wait(ctx context.Context, pid uint64) (abi.ErrorStatus, abi.ErrorStatus) {
	return s.k.tasks.Wait(ctx, pid)
}
