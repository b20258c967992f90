// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fb implements the virtual framebuffer as a grid of text
// cells with a write cursor. The device consumes bytes; reading it
// back goes through Line, which the host console uses to render.
package fb

import (
	"context"
	"strings"
	"sync"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
)

type Framebuffer struct {
	mu    sync.Mutex
	cols  int
	rows  int
	cells [][]byte
	cx    int
	cy    int
}

var _ = (devfs.Driver)((*Framebuffer)(nil))

// New creates a cols by rows framebuffer. Non-positive dimensions
// select the classic 80x25 text mode.
func New(cols, rows int) *Framebuffer {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 25
	}
	f := &Framebuffer{cols: cols, rows: rows, cells: make([][]byte, rows)}
	for y := range f.cells {
		f.cells[y] = blankRow(cols)
	}
	return f
}

func blankRow(cols int) []byte {
	row := make([]byte, cols)
	for x := range row {
		row[x] = ' '
	}
	return row
}

func (f *Framebuffer) DriverName() string {
	return "fb0"
}

// ReadByte always fails: the framebuffer is output only.
func (f *Framebuffer) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	return 0, abi.NotSupported
}

func (f *Framebuffer) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range p {
		switch {
		case b == '\n':
			f.newline()
		case b == '\r':
			f.cx = 0
		case b == 0x08:
			if f.cx > 0 {
				f.cx--
				f.cells[f.cy][f.cx] = ' '
			}
		case b >= 0x20 && b < 0x7F:
			f.cells[f.cy][f.cx] = b
			f.cx++
			if f.cx == f.cols {
				f.newline()
			}
		}
	}
	return len(p), abi.OK
}

func (f *Framebuffer) newline() {
	f.cx = 0
	f.cy++
	if f.cy == f.rows {
		copy(f.cells, f.cells[1:])
		f.cells[f.rows-1] = blankRow(f.cols)
		f.cy = f.rows - 1
	}
}

func (f *Framebuffer) Poll() bool {
	return false
}

// Size reports the grid dimensions.
func (f *Framebuffer) Size() (cols, rows int) {
	return f.cols, f.rows
}

// Cursor reports the write position.
func (f *Framebuffer) Cursor() (x, y int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cx, f.cy
}

// Line returns row y with trailing blanks removed.
func (f *Framebuffer) Line(y int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if y < 0 || y >= f.rows {
		return ""
	}
	return strings.TrimRight(string(f.cells[y]), " ")
}
