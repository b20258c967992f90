// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abi

import "encoding/binary"

// SysInfo is the record filled by the sysinfo system call. The
// layout is frozen: three machine words in this order, C struct
// layout, natural alignment, no padding. The kernel targets 64-bit
// machines, so a word is 8 bytes.
type SysInfo struct {
	TotalMem       uint64
	UsedMem        uint64
	ProcessesCount uint64
}

// SysInfoSize is the encoded size of SysInfo in bytes.
const SysInfoSize = 24

// Encode writes the record into buf, which must hold at least
// SysInfoSize bytes. Words are little-endian, matching the target.
func (si *SysInfo) Encode(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], si.TotalMem)
	binary.LittleEndian.PutUint64(buf[8:16], si.UsedMem)
	binary.LittleEndian.PutUint64(buf[16:24], si.ProcessesCount)
}

// DecodeSysInfo reads a record back out of buf.
func DecodeSysInfo(buf []byte) (SysInfo, ErrorStatus) {
	if len(buf) < SysInfoSize {
		return SysInfo{}, NotEnoughArguments
	}
	return SysInfo{
		TotalMem:       binary.LittleEndian.Uint64(buf[0:8]),
		UsedMem:        binary.LittleEndian.Uint64(buf[8:16]),
		ProcessesCount: binary.LittleEndian.Uint64(buf[16:24]),
	}, OK
}
