// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testutil carries the shared fixtures of the package tests:
// the DEBUG=1 verbosity switch and a small booted kernel.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/tern-os/tern/kernel"
	"github.com/tern-os/tern/kernel/klog"
)

// Logger returns a console logger for a test: full debug output under
// DEBUG=1, silence otherwise.
func Logger(t *testing.T) *slog.Logger {
	t.Helper()
	if !VerboseTest() {
		return klog.Discard()
	}
	return klog.New(&klog.Options{Level: slog.LevelDebug, W: os.Stdout})
}

// NewKernel boots a kernel for a test: default drivers, a small frame
// budget, the full procfs variant and a console honouring DEBUG=1.
func NewKernel(t *testing.T) *kernel.Kernel {
	t.Helper()
	cfg := kernel.DefaultConfig()
	cfg.Memory.Frames = 256
	k, err := kernel.New(cfg, &kernel.Options{Log: Logger(t)})
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	return k
}
