// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernel assembles the subsystems of a booted system: frame
// allocator, mount tree, driver registry and task table. Services
// reach each other through the Kernel reference, never through
// globals, so tests can boot as many kernels as they like.
package kernel

import (
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
	"github.com/tern-os/tern/kernel/driver/fb"
	"github.com/tern-os/tern/kernel/driver/kbd"
	"github.com/tern-os/tern/kernel/driver/serial"
	"github.com/tern-os/tern/kernel/klog"
	"github.com/tern-os/tern/kernel/mem"
	"github.com/tern-os/tern/kernel/task"
	"github.com/tern-os/tern/procfs"
	"github.com/tern-os/tern/ramfs"
	"github.com/tern-os/tern/vfs"
)

// Options adjust kernel construction beyond what the Config file
// carries.
type Options struct {
	// Log replaces the console logger built from Config.Console.
	Log *slog.Logger

	// Drivers are registered under /dev in order. Nil selects the
	// default set: a loopback serial line, a keyboard and a
	// framebuffer.
	Drivers []devfs.Driver

	// Ramdisk supplies the /sys archive as an open tar stream,
	// overriding Config.Ramdisk.Path.
	Ramdisk io.Reader
}

// Kernel is one booted instance.
type Kernel struct {
	cfg    *Config
	log    *slog.Logger
	alloc  *mem.Allocator
	vfs    *vfs.VFS
	tasks  *task.Table
	bootID uuid.UUID
	cpus   []procfs.CPU
}

var _ = (procfs.SysSource)((*Kernel)(nil))

// New boots a kernel: it builds the allocator and the task table,
// mounts ramfs at /, devfs at /dev, procfs at /proc and, when
// configured, the ramdisk at /sys.
func New(cfg *Config, opts *Options) (*Kernel, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if opts == nil {
		opts = &Options{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Log
	if logger == nil {
		level, err := klog.ParseLevel(cfg.Console.Level)
		if err != nil {
			return nil, err
		}
		logger = klog.New(&klog.Options{Level: level, NoColor: cfg.Console.NoColor})
	}

	k := &Kernel{
		cfg:    cfg,
		log:    logger,
		alloc:  mem.NewAllocator(cfg.Memory.Frames, cfg.Memory.PageSize),
		vfs:    vfs.New(),
		tasks:  task.NewTable(),
		bootID: uuid.New(),
	}
	for i := 0; i < cfg.CPU.Count; i++ {
		k.cpus = append(k.cpus, procfs.CPU{Vendor: cfg.CPU.Vendor, Model: cfg.CPU.Model})
	}

	start := time.Now()
	boot := klog.For(logger, "boot")
	boot.Info("bringing up filesystems",
		"kernel", cfg.Name, "build", cfg.Build, "boot_id", k.bootID)
	if err := k.mountAll(opts); err != nil {
		return nil, err
	}
	boot.Info("boot complete", "elapsed", time.Since(start).Round(time.Millisecond))
	return k, nil
}

func (k *Kernel) mountAll(opts *Options) error {
	log := klog.For(k.log, "vfs")

	root := ramfs.New(k.cfg.Ramfs.MaxBytes)
	if code := k.vfs.Mount(vfs.MustParse("/"), root); !code.Ok() {
		return fmt.Errorf("mount /: %v", code)
	}
	log.Info("mounted", "prefix", "/", "backend", root.BackendName())
	if code := k.vfs.Mkdir(vfs.MustParse("/tmp"), abi.PermRW); !code.Ok() {
		return fmt.Errorf("mkdir /tmp: %v", code)
	}

	dev := devfs.New()
	drivers := opts.Drivers
	if drivers == nil {
		drivers = []devfs.Driver{
			serial.NewLoopback("serial", 4096),
			kbd.New(0),
			fb.New(0, 0),
		}
	}
	for _, d := range drivers {
		if code := dev.Register(d); !code.Ok() {
			return fmt.Errorf("register driver %s: %v", d.DriverName(), code)
		}
		log.Debug("driver registered", "name", d.DriverName())
	}
	if code := k.vfs.Mount(vfs.MustParse("/dev"), dev); !code.Ok() {
		return fmt.Errorf("mount /dev: %v", code)
	}
	log.Info("mounted", "prefix", "/dev", "backend", dev.BackendName(), "devices", len(drivers))

	variant, err := procfs.ParseVariant(k.cfg.Proc.Variant)
	if err != nil {
		return err
	}
	proc := procfs.New(k, k.alloc, variant)
	if code := k.vfs.Mount(vfs.MustParse("/proc"), proc); !code.Ok() {
		return fmt.Errorf("mount /proc: %v", code)
	}
	log.Info("mounted", "prefix", "/proc", "backend", proc.BackendName(), "variant", variant)

	return k.mountRamdisk(opts, log)
}

// mountRamdisk unpacks the boot archive into a fresh ramfs at /sys.
// Without a configured stream or path it does nothing.
func (k *Kernel) mountRamdisk(opts *Options, log *slog.Logger) error {
	stream := opts.Ramdisk
	if stream == nil {
		path := k.cfg.Ramdisk.Path
		if path == "" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("ramdisk: %w", err)
		}
		defer f.Close()
		stream = f
		if strings.HasSuffix(path, ".gz") {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return fmt.Errorf("ramdisk %s: %w", path, err)
			}
			defer gz.Close()
			stream = gz
		}
	}

	sys := ramfs.New(0)
	added, skipped, err := sys.UnpackArchive(stream)
	if err != nil {
		return fmt.Errorf("ramdisk unpack: %w", err)
	}
	if code := k.vfs.Mount(vfs.MustParse("/sys"), sys); !code.Ok() {
		return fmt.Errorf("mount /sys: %v", code)
	}
	log.Info("mounted", "prefix", "/sys", "backend", sys.BackendName(),
		"entries", added, "skipped", skipped)
	return nil
}

// VFS returns the mount tree.
func (k *Kernel) VFS() *vfs.VFS {
	return k.vfs
}

// Tasks returns the task table.
func (k *Kernel) Tasks() *task.Table {
	return k.tasks
}

// Allocator returns the frame allocator backing procfs snapshots.
func (k *Kernel) Allocator() *mem.Allocator {
	return k.alloc
}

// Log returns the console logger.
func (k *Kernel) Log() *slog.Logger {
	return k.log
}

// BootID identifies this kernel instance.
func (k *Kernel) BootID() uuid.UUID {
	return k.bootID
}

// SysInfo reports the memory and process figures of the running
// system.
func (k *Kernel) SysInfo() abi.SysInfo {
	return abi.SysInfo{
		TotalMem:       k.alloc.TotalBytes(),
		UsedMem:        k.alloc.UsedBytes(),
		ProcessesCount: uint64(k.tasks.Count()),
	}
}

func (k *Kernel) CPUs() []procfs.CPU {
	return k.cpus
}

func (k *Kernel) Kernel() (name, build, bootID string) {
	return k.cfg.Name, k.cfg.Build, k.bootID.String()
}

func (k *Kernel) TaskStats() []procfs.TaskStat {
	infos := k.tasks.Snapshot()
	stats := make([]procfs.TaskStat, len(infos))
	for i, ti := range infos {
		stats[i] = procfs.TaskStat{
			Pid:       ti.Pid,
			Name:      ti.Name,
			State:     ti.State.String(),
			Cwd:       ti.Cwd,
			OpenFiles: ti.OpenFiles,
		}
	}
	return stats
}

func (k *Kernel) Mounts() []vfs.MountPoint {
	return k.vfs.Mounts()
}

// Program is the entry point of a user binary. It runs on its own
// goroutine and its return value becomes the task's exit status.
type Program func(sys *Syscalls, argv []string) abi.ErrorStatus

// Spawn creates a task and starts prog on it. The returned task is
// Runnable immediately; the program goroutine marks it Running.
func (k *Kernel) Spawn(parent *task.Task, name string, prog Program, argv []string, meta abi.TaskMetadata, flags abi.SpawnFlags) (*task.Task, abi.ErrorStatus) {
	t, code := k.tasks.Spawn(k.vfs, parent, name, meta, flags)
	if !code.Ok() {
		return nil, code
	}
	go k.run(t, prog, argv)
	return t, abi.OK
}

func (k *Kernel) run(t *task.Task, prog Program, argv []string) {
	t.MarkRunning()
	code := prog(&Syscalls{k: k, task: t}, argv)
	k.tasks.Exit(k.vfs, t, code)
	klog.For(k.log, "task").Debug("exited",
		"pid", t.Pid(), "name", t.Name(), "status", code)
}

// Shutdown flushes every mounted backend. Tasks still running keep
// their descriptors; the caller decides when to stop feeding them.
func (k *Kernel) Shutdown() {
	k.vfs.SyncAll()
	klog.For(k.log, "boot").Info("shutdown", "boot_id", k.bootID)
}
