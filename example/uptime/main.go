// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Shows the driver extension point: a custom read-only device that
// reports seconds since boot, registered as the only device and read
// back through the system-call surface.

package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
	"github.com/tern-os/tern/kernel"
)

// uptimeDev yields one decimal line per read cycle. Line bytes are
// handed out one at a time, the way device reads work.
type uptimeDev struct {
	start time.Time
	line  []byte
}

var _ = (devfs.Driver)((*uptimeDev)(nil))

func (u *uptimeDev) DriverName() string { return "uptime" }

func (u *uptimeDev) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	if len(u.line) == 0 {
		u.line = []byte(fmt.Sprintf("%d\n", int(time.Since(u.start).Seconds())))
	}
	b := u.line[0]
	u.line = u.line[1:]
	return b, abi.OK
}

func (u *uptimeDev) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	return 0, abi.NotSupported
}

func (u *uptimeDev) Poll() bool { return true }

func main() {
	k, err := kernel.New(nil, &kernel.Options{
		Drivers: []devfs.Driver{&uptimeDev{start: time.Now()}},
	})
	if err != nil {
		log.Fatalf("boot: %v", err)
	}

	show, code := k.Spawn(nil, "show", func(sys *kernel.Syscalls, argv []string) abi.ErrorStatus {
		ctx := context.Background()
		fd, code := sys.Open(ctx, "/dev/uptime", abi.OpenRead)
		if !code.Ok() {
			return code
		}
		defer sys.Close(fd)
		buf := make([]byte, 1)
		for buf[0] != '\n' {
			if _, code := sys.Read(ctx, fd, buf); !code.Ok() {
				return code
			}
			fmt.Printf("%c", buf[0])
		}
		return abi.OK
	}, []string{"show"}, abi.TaskMetadata{}, 0)
	if !code.Ok() {
		log.Fatalf("spawn: %v", code)
	}
	if exit, code := k.Tasks().Wait(context.Background(), show.Pid()); !code.Ok() || exit != abi.OK {
		log.Fatalf("show exited: %v (%v)", exit, code)
	}
	k.Shutdown()
}
