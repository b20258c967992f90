// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// This is a repository containing the hosted core of the TernOS
// kernel: a virtual filesystem with pluggable backends, the procfs
// and device-file backends, and the task and system-call layers that
// sit on top of them.
//
// Go to https://godoc.org/github.com/tern-os/tern/vfs for the
// in-depth documentation of the filesystem layer, and to
// https://godoc.org/github.com/tern-os/tern/kernel for the kernel
// construction and system-call surface.
package lib
