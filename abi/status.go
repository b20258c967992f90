// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package abi holds the types shared between the kernel and user
// binaries: the error taxonomy, the sysinfo record, task spawn
// metadata and the open flag words. Layouts and numeric values in
// this package are frozen; existing binaries match on them.
package abi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// ErrorStatus is the single error kind returned by every kernel
// operation. The zero value means success. Values double as process
// exit statuses, so entries must never be renumbered or removed.
type ErrorStatus uint16

const (
	OK                 = ErrorStatus(0)
	NotEnoughArguments = ErrorStatus(1)
	NotFound           = ErrorStatus(2)
	AlreadyExists      = ErrorStatus(3)
	PermissionDenied   = ErrorStatus(4)
	NotADirectory      = ErrorStatus(5)
	IsADirectory       = ErrorStatus(6)
	BadDescriptor      = ErrorStatus(7)
	InvalidPath        = ErrorStatus(8)
	ReadOnly           = ErrorStatus(9)
	NoSpace            = ErrorStatus(10)
	IoError            = ErrorStatus(11)
	NotSupported       = ErrorStatus(12)
	OutOfMemory        = ErrorStatus(13)
	Busy               = ErrorStatus(14)
	Interrupted        = ErrorStatus(15)
)

// Mount administration codes. These are produced by the mount table
// during boot and teardown and never cross the system-call boundary.
const (
	AlreadyMounted = ErrorStatus(16)
	NotMounted     = ErrorStatus(17)
	InvalidPrefix  = ErrorStatus(18)
)

var statusNames = map[ErrorStatus]string{
	OK:                 "OK",
	NotEnoughArguments: "NotEnoughArguments",
	NotFound:           "NotFound",
	AlreadyExists:      "AlreadyExists",
	PermissionDenied:   "PermissionDenied",
	NotADirectory:      "NotADirectory",
	IsADirectory:       "IsADirectory",
	BadDescriptor:      "BadDescriptor",
	InvalidPath:        "InvalidPath",
	ReadOnly:           "ReadOnly",
	NoSpace:            "NoSpace",
	IoError:            "IoError",
	NotSupported:       "NotSupported",
	OutOfMemory:        "OutOfMemory",
	Busy:               "Busy",
	Interrupted:        "Interrupted",
	AlreadyMounted:     "AlreadyMounted",
	NotMounted:         "NotMounted",
	InvalidPrefix:      "InvalidPrefix",
}

// Ok reports whether the status signals success.
func (code ErrorStatus) Ok() bool {
	return code == OK
}

func (code ErrorStatus) String() string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("ErrorStatus(%d)", uint16(code))
}

// ToStatus translates an internal Go error into the taxonomy.
// Backends call it where host errors surface; the raw error never
// reaches user space.
func ToStatus(err error) ErrorStatus {
	if err == nil {
		return OK
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Interrupted
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	case errors.Is(err, fs.ErrExist):
		return AlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return PermissionDenied
	case errors.Is(err, fs.ErrClosed):
		return BadDescriptor
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOENT:
			return NotFound
		case syscall.EEXIST:
			return AlreadyExists
		case syscall.EACCES, syscall.EPERM:
			return PermissionDenied
		case syscall.ENOTDIR:
			return NotADirectory
		case syscall.EISDIR:
			return IsADirectory
		case syscall.EBADF:
			return BadDescriptor
		case syscall.EROFS:
			return ReadOnly
		case syscall.ENOSPC:
			return NoSpace
		case syscall.ENOSYS:
			return NotSupported
		case syscall.ENOMEM:
			return OutOfMemory
		case syscall.EBUSY, syscall.EAGAIN:
			return Busy
		case syscall.EINTR:
			return Interrupted
		}
	}
	return IoError
}
