// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package task

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/vfs"
)

// TaskInfo is a point-in-time row describing one task.
type TaskInfo struct {
	Pid       uint64
	Name      string
	State     State
	Cwd       string
	OpenFiles int
	SpawnID   uuid.UUID
}

// Table owns every task in the kernel. Pids are monotonic and never
// reused within one boot.
type Table struct {
	mu      sync.Mutex
	nextPid uint64
	tasks   map[uint64]*Task
}

// NewTable returns an empty task table.
func NewTable() *Table {
	return &Table{tasks: make(map[uint64]*Task)}
}

// Spawn creates a task. The metadata's standard streams index the
// parent's descriptor table and land at their fixed child slots:
// stdout at 1, stdin at 0, stderr at 2; absent entries leave the slot
// unbound. CloneResources shares the parent's whole descriptor table,
// CloneCwd its working directory; without them the child starts with
// an empty table and the root directory. Binding failures unwind
// every descriptor already taken.
func (tbl *Table) Spawn(v *vfs.VFS, parent *Task, name string, meta abi.TaskMetadata, flags abi.SpawnFlags) (*Task, abi.ErrorStatus) {
	cwd := vfs.MustParse("/")
	if flags&abi.CloneCwd != 0 && parent != nil {
		cwd = parent.Cwd()
	}
	var fds *vfs.FDTable
	if flags&abi.CloneResources != 0 && parent != nil {
		fds = parent.FDs().Clone()
	} else {
		fds = vfs.NewFDTable()
	}

	t := &Task{
		name:  name,
		sid:   uuid.New(),
		state: StateRunnable,
		cwd:   cwd,
		fds:   fds,
		done:  make(chan struct{}),
	}
	if code := bindStdio(v, parent, t, meta); !code.Ok() {
		for _, f := range fds.Drain() {
			v.Close(f)
		}
		return nil, code
	}

	tbl.mu.Lock()
	tbl.nextPid++
	t.pid = tbl.nextPid
	tbl.tasks[t.pid] = t
	tbl.mu.Unlock()
	return t, abi.OK
}

// bindStdio installs the metadata streams. The open files are shared
// with the parent, not copied: both tables hold a reference and the
// cursor is common.
func bindStdio(v *vfs.VFS, parent *Task, t *Task, meta abi.TaskMetadata) abi.ErrorStatus {
	binds := []struct {
		opt  abi.OptionalFD
		slot int
	}{
		{meta.Stdout, 1},
		{meta.Stdin, 0},
		{meta.Stderr, 2},
	}
	for _, b := range binds {
		src, ok := b.opt.Get()
		if !ok {
			continue
		}
		if parent == nil {
			return abi.BadDescriptor
		}
		f, code := parent.FDs().Get(int(src))
		if !code.Ok() {
			return code
		}
		if code := f.Retain(); !code.Ok() {
			return code
		}
		// A cloned table may already hold the slot; the metadata
		// entry replaces it.
		if old, code := t.fds.Release(b.slot); code.Ok() {
			v.Close(old)
		}
		if code := t.fds.Bind(b.slot, f); !code.Ok() {
			v.Close(f)
			return code
		}
	}
	return abi.OK
}

// Exit retires t: the status is recorded, the descriptors drain in
// ascending order and the task turns Zombie until a Wait reaps it.
// A repeated exit is ignored.
func (tbl *Table) Exit(v *vfs.VFS, t *Task, code abi.ErrorStatus) {
	t.mu.Lock()
	if t.state == StateZombie {
		t.mu.Unlock()
		return
	}
	t.state = StateZombie
	t.exit = code
	t.mu.Unlock()

	for _, f := range t.fds.Drain() {
		v.Close(f)
	}
	close(t.done)
}

// Wait blocks until pid exits, reaps the zombie and returns its exit
// status. Waiting on an unknown or already reaped pid fails with
// NotFound; a cancelled context with Interrupted.
func (tbl *Table) Wait(ctx context.Context, pid uint64) (abi.ErrorStatus, abi.ErrorStatus) {
	tbl.mu.Lock()
	t, ok := tbl.tasks[pid]
	tbl.mu.Unlock()
	if !ok {
		return abi.OK, abi.NotFound
	}
	select {
	case <-t.done:
	case <-ctx.Done():
		return abi.OK, abi.Interrupted
	}
	tbl.mu.Lock()
	delete(tbl.tasks, pid)
	tbl.mu.Unlock()
	return t.exit, abi.OK
}

// Get looks a task up by pid.
func (tbl *Table) Get(pid uint64) (*Task, bool) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	t, ok := tbl.tasks[pid]
	return t, ok
}

// Count returns the number of tasks in the table, zombies included
// until they are reaped.
func (tbl *Table) Count() int {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	return len(tbl.tasks)
}

// Snapshot returns every task's row in ascending pid order.
func (tbl *Table) Snapshot() []TaskInfo {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	out := make([]TaskInfo, 0, len(tbl.tasks))
	for _, t := range tbl.tasks {
		t.mu.Lock()
		out = append(out, TaskInfo{
			Pid:       t.pid,
			Name:      t.name,
			State:     t.state,
			Cwd:       t.cwd.String(),
			OpenFiles: t.fds.Count(),
			SpawnID:   t.sid,
		})
		t.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pid < out[j].Pid })
	return out
}
