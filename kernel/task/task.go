// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package task is the process table. A Task owns a working directory
// and a descriptor table; the table mints pids, binds the standard
// streams at spawn and retires tasks through the Zombie state until
// they are reaped by Wait.
package task

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

// State is a task's scheduling state.
type State int32

const (
	StateRunnable State = iota
	StateRunning
	StateZombie
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "Runnable"
	case StateRunning:
		return "Running"
	case StateZombie:
		return "Zombie"
	}
	return "Unknown"
}

// Task is one scheduled program. The pid and spawn ID are immutable;
// the mutex guards state and cwd. The descriptor table carries its
// own lock.
type Task struct {
	pid  uint64
	name string
	sid  uuid.UUID

	mu    sync.Mutex
	state State
	cwd   vfs.Path
	exit  abi.ErrorStatus

	fds  *vfs.FDTable
	done chan struct{}
}

// Pid returns the task's process ID.
func (t *Task) Pid() uint64 { return t.pid }

// Name returns the name given at spawn.
func (t *Task) Name() string { return t.name }

// SpawnID returns the UUID minted when the task was created. It
// appears in logs to tell apart reused names.
func (t *Task) SpawnID() uuid.UUID { return t.sid }

// State returns the current scheduling state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Cwd returns the working directory.
func (t *Task) Cwd() vfs.Path {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cwd
}

// Chdir installs a new working directory. The caller has already
// resolved it to a directory.
func (t *Task) Chdir(p vfs.Path) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cwd = p
}

// FDs returns the task's descriptor table.
func (t *Task) FDs() *vfs.FDTable { return t.fds }

// MarkRunning records that the task's program started executing.
func (t *Task) MarkRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRunnable {
		t.state = StateRunning
	}
}
