// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kbd turns PS/2 set-1 scancodes into a stream of bytes. The
// driver keeps the modifier state (shift, caps lock) and queues the
// decoded bytes for blocking reads through the device file.
package kbd

import (
	"context"
	"sync"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/devfs"
)

// Set-1 make codes the state machine treats specially.
const (
	codeLeftShift  = 0x2A
	codeRightShift = 0x36
	codeCapsLock   = 0x3A
	breakBit       = 0x80
)

// Keyboard decodes scancodes fed by Press into a bounded byte queue.
type Keyboard struct {
	mu    sync.Mutex
	shift int
	caps  bool
	ch    chan byte
}

var _ = (devfs.Driver)((*Keyboard)(nil))

// New creates a keyboard buffering up to depth decoded bytes. Bytes
// arriving on a full queue are dropped, as a controller would.
func New(depth int) *Keyboard {
	if depth <= 0 {
		depth = 128
	}
	return &Keyboard{ch: make(chan byte, depth)}
}

func (k *Keyboard) DriverName() string {
	return "kbd"
}

// Press feeds one scancode. Make codes emit the mapped byte; break
// codes (bit 7 set) only update the modifier state.
func (k *Keyboard) Press(code byte) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if code&breakBit != 0 {
		switch code &^ breakBit {
		case codeLeftShift, codeRightShift:
			if k.shift > 0 {
				k.shift--
			}
		}
		return
	}

	switch code {
	case codeLeftShift, codeRightShift:
		k.shift++
		return
	case codeCapsLock:
		k.caps = !k.caps
		return
	}

	b := k.decode(code)
	if b == 0 {
		return
	}
	select {
	case k.ch <- b:
	default:
	}
}

func (k *Keyboard) decode(code byte) byte {
	if int(code) >= len(keymapLower) {
		return 0
	}
	lower := keymapLower[code]
	upper := keymapUpper[code]
	if lower == 0 {
		return 0
	}
	shifted := k.shift > 0
	if lower >= 'a' && lower <= 'z' {
		// Caps lock flips letters only.
		if shifted != k.caps {
			return upper
		}
		return lower
	}
	if shifted {
		return upper
	}
	return lower
}

func (k *Keyboard) ReadByte(ctx context.Context) (byte, abi.ErrorStatus) {
	select {
	case b := <-k.ch:
		return b, abi.OK
	case <-ctx.Done():
		return 0, abi.Interrupted
	}
}

// WriteBytes always fails: the keyboard is an input device.
func (k *Keyboard) WriteBytes(p []byte) (int, abi.ErrorStatus) {
	return 0, abi.NotSupported
}

func (k *Keyboard) Poll() bool {
	return len(k.ch) > 0
}

// US layout indexed by set-1 make code. Zero entries have no byte
// representation (function keys, modifiers).
var keymapLower = [...]byte{
	0x01: 0x1b, // esc
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: 0x08, // backspace
	0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']',
	0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l',
	0x27: ';', 0x28: '\'', 0x29: '`',
	0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm',
	0x33: ',', 0x34: '.', 0x35: '/',
	0x37: '*',
	0x39: ' ',
}

var keymapUpper = [...]byte{
	0x01: 0x1b,
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+', 0x0E: 0x08,
	0x0F: '\t',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1A: '{', 0x1B: '}',
	0x1C: '\n',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L',
	0x27: ':', 0x28: '"', 0x29: '~',
	0x2B: '|',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M',
	0x33: '<', 0x34: '>', 0x35: '?',
	0x37: '*',
	0x39: ' ',
}
