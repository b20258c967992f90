// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package serial

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
)

// pollMillis bounds each readiness wait so cancellation is noticed.
const pollMillis = 100

// Port forwards the serial line to a host file descriptor.
type Port struct {
	name string
	fd   int
}

var _ = (devfs.Driver)((*Port)(nil))

// NewPort wraps a host descriptor, typically the process tty. The
// descriptor is dup'd and switched to non-blocking mode, so the
// caller's copy is unaffected and Close releases only ours.
func NewPort(name string, fd int) (*Port, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return nil, err
	}
	return &Port{name: name, fd: nfd}, nil
}

func (p *Port) DriverName() string {
	return p.name
}

func (p *Port) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	var b [1]byte
	for {
		if ctx.Err() != nil {
			return 0, abi.Interrupted
		}
		n, err := unix.Read(p.fd, b[:])
		if n == 1 {
			return b[0], abi.OK
		}
		if n == 0 && err == nil {
			// The line is gone (EOF on the host side).
			return 0, abi.IoError
		}
		if err != unix.EAGAIN && err != unix.EINTR {
			return 0, abi.ToStatus(err)
		}
		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
		if _, perr := unix.Poll(fds, pollMillis); perr != nil && perr != unix.EINTR {
			return 0, abi.ToStatus(perr)
		}
	}
}

func (p *Port) WriteBytes(buf []byte) (int, abi.ErrorStatus) {
	n, err := unix.Write(p.fd, buf)
	if n > 0 {
		return n, abi.OK
	}
	if err == unix.EAGAIN {
		return 0, abi.Busy
	}
	if err == nil {
		return 0, abi.OK
	}
	return 0, abi.ToStatus(err)
}

func (p *Port) Poll() bool {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

// Close releases the dup'd descriptor. The port must not be used
// afterwards.
func (p *Port) Close() error {
	return unix.Close(p.fd)
}
