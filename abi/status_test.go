// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abi

import (
	"context"
	"fmt"
	"syscall"
	"testing"
)

func TestStatusString(t *testing.T) {
	cases := []struct {
		code ErrorStatus
		want string
	}{
		{OK, "OK"},
		{NotFound, "NotFound"},
		{BadDescriptor, "BadDescriptor"},
		{Interrupted, "Interrupted"},
		{AlreadyMounted, "AlreadyMounted"},
		{ErrorStatus(999), "ErrorStatus(999)"},
	}
	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Errorf("String(%d): got %q, want %q", uint16(c.code), got, c.want)
		}
	}
}

func TestStatusOk(t *testing.T) {
	if !OK.Ok() {
		t.Error("OK.Ok() returned false")
	}
	if NotFound.Ok() {
		t.Error("NotFound.Ok() returned true")
	}
}

func TestStatusValuesFrozen(t *testing.T) {
	// Exit statuses of shipped binaries depend on these numbers.
	want := map[ErrorStatus]uint16{
		OK:                 0,
		NotEnoughArguments: 1,
		NotFound:           2,
		AlreadyExists:      3,
		PermissionDenied:   4,
		NotADirectory:      5,
		IsADirectory:       6,
		BadDescriptor:      7,
		InvalidPath:        8,
		ReadOnly:           9,
		NoSpace:            10,
		IoError:            11,
		NotSupported:       12,
		OutOfMemory:        13,
		Busy:               14,
		Interrupted:        15,
	}
	for code, num := range want {
		if uint16(code) != num {
			t.Errorf("%s: got %d, want %d", code, uint16(code), num)
		}
	}
}

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorStatus
	}{
		{nil, OK},
		{context.Canceled, Interrupted},
		{context.DeadlineExceeded, Interrupted},
		{syscall.ENOENT, NotFound},
		{fmt.Errorf("open: %w", syscall.EEXIST), AlreadyExists},
		{syscall.EROFS, ReadOnly},
		{syscall.EBUSY, Busy},
		{fmt.Errorf("something went wrong"), IoError},
	}
	for _, c := range cases {
		if got := ToStatus(c.err); got != c.want {
			t.Errorf("ToStatus(%v): got %v, want %v", c.err, got, c.want)
		}
	}
}
