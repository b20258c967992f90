// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Boots a kernel on the host terminal and walks the userland
// binaries through a short init sequence on /dev/console.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
	"github.com/tern-os/tern/kernel"
	"github.com/tern-os/tern/kernel/driver/fb"
	"github.com/tern-os/tern/kernel/driver/kbd"
	"github.com/tern-os/tern/kernel/driver/serial"
	"github.com/tern-os/tern/userland"
)

func main() {
	config := flag.String("config", "", "kernel configuration file (YAML), environment overrides apply.")
	debug := flag.Bool("debug", false, "log at debug level.")
	flag.Parse()
	if flag.NArg() > 0 {
		fmt.Printf("usage: %s [-config FILE] [-debug]\n", path.Base(os.Args[0]))
		fmt.Printf("\noptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := kernel.LoadConfig(*config)
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(2)
	}
	if *debug {
		cfg.Console.Level = "debug"
	}

	// The console device forwards to the terminal we were started on.
	console, err := serial.NewPort("console", int(os.Stdout.Fd()))
	if err != nil {
		fmt.Printf("console: %v\n", err)
		os.Exit(1)
	}
	defer console.Close()

	k, err := kernel.New(cfg, &kernel.Options{
		Drivers: []devfs.Driver{
			serial.NewLoopback("serial", 4096),
			kbd.New(0),
			fb.New(0, 0),
			console,
		},
	})
	if err != nil {
		fmt.Printf("boot: %v\n", err)
		os.Exit(1)
	}

	init, code := k.Spawn(nil, "init", initSequence, []string{"init"}, abi.TaskMetadata{}, 0)
	if !code.Ok() {
		fmt.Printf("spawn init: %v\n", code)
		os.Exit(1)
	}
	exit, code := k.Tasks().Wait(context.Background(), init.Pid())
	k.Shutdown()
	if !code.Ok() || exit != abi.OK {
		fmt.Printf("init exited: %v (%v)\n", exit, code)
		os.Exit(1)
	}
}

// initSequence runs each demo command as its own task with stdout and
// stderr on the console. A failing command reports itself through the
// inherited descriptor 2; init carries on, as an init should.
func initSequence(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
	ctx := context.Background()
	out, code := sys.Open(ctx, "/dev/console", abi.OpenWrite)
	if !code.Ok() {
		return code
	}
	meta := abi.TaskMetadata{
		Stdout: abi.SomeFD(uint64(out)),
		Stdin:  abi.NoneFD(),
		Stderr: abi.SomeFD(uint64(out)),
	}

	steps := [][]string{
		{"mkdir", "/tmp/demo"},
		{"touch", "/tmp/demo/readme"},
		{"ls", "/tmp/demo"},
		{"stat", "/tmp/demo/readme"},
		{"ls", "/dev"},
		{"cat", "/proc/meminfo"},
		{"cat", "/proc/kernelinfo"},
		{"cat", "/proc/mounts"},
	}
	for _, step := range steps {
		emit(sys, out, "# "+join(step)+"\n")
		prog, ok := userland.Lookup(step[0])
		if !ok {
			return abi.NotFound
		}
		pid, code := sys.Spawn(step[0], prog, step, meta, 0)
		if !code.Ok() {
			return code
		}
		if _, code := sys.Wait(ctx, pid); !code.Ok() {
			return code
		}
	}
	emit(sys, out, "init: done\n")
	return sys.Close(out)
}

// emit pushes s down the descriptor, riding out short writes.
func emit(sys *kernel.Syscalls, fd int, s string) {
	data := []byte(s)
	for len(data) > 0 {
		n, code := sys.Write(context.Background(), fd, data)
		if !code.Ok() || n == 0 {
			return
		}
		data = data[n:]
	}
}

func join(argv []string) string {
	s := argv[0]
	for _, a := range argv[1:] {
		s += " " + a
	}
	return s
}
