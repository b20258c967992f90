// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package serial provides the console line drivers: Loopback, an
// in-memory queue used by tests and the default boot, and Port, which
// forwards to a host file descriptor such as the process tty.
package serial

import (
	"context"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
)

// Loopback is a serial line whose transmit and receive sides meet in a
// bounded queue: bytes written come back out of ReadByte in order.
type Loopback struct {
	name string
	ch   chan byte
}

var _ = (devfs.Driver)((*Loopback)(nil))

// NewLoopback creates a loopback line buffering up to depth bytes. A
// non-positive depth selects a small default.
func NewLoopback(name string, depth int) *Loopback {
	if depth <= 0 {
		depth = 256
	}
	return &Loopback{name: name, ch: make(chan byte, depth)}
}

func (l *Loopback) DriverName() string {
	return l.name
}

func (l *Loopback) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	select {
	case b := <-l.ch:
		return b, abi.OK
	case <-ctx.Done():
		return 0, abi.Interrupted
	}
}

// WriteBytes queues as much of p as fits. A full queue yields a short
// count, or Busy when not even the first byte fits.
func (l *Loopback) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	for i := range p {
		select {
		case l.ch <- p[i]:
		default:
			if i == 0 {
				return 0, abi.Busy
			}
			return i, abi.OK
		}
	}
	return len(p), abi.OK
}

func (l *Loopback) Poll() bool {
	return len(l.ch) > 0
}
