// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abi

import "encoding/binary"

// Optional discriminant values.
const (
	TagNone = uint8(0)
	TagSome = uint8(1)
)

// OptionalFD is the C-layout optional descriptor: a discriminant
// byte followed by the value. The explicit padding keeps Value on
// its natural 8-byte alignment; the whole struct is 16 bytes.
type OptionalFD struct {
	Tag   uint8
	_     [7]byte
	Value uint64
}

// SomeFD wraps a descriptor value.
func SomeFD(fd uint64) OptionalFD {
	return OptionalFD{Tag: TagSome, Value: fd}
}

// NoneFD is the absent descriptor.
func NoneFD() OptionalFD {
	return OptionalFD{Tag: TagNone}
}

// Get returns the value and whether it is present.
func (o OptionalFD) Get() (uint64, bool) {
	return o.Value, o.Tag == TagSome
}

// TaskMetadata names the I/O channels a new task inherits. Field
// order is frozen: stdout, stdin, stderr. A spawned task sees the
// present entries as descriptors 1, 0 and 2 respectively; absent
// entries leave those descriptors unbound.
type TaskMetadata struct {
	Stdout OptionalFD
	Stdin  OptionalFD
	Stderr OptionalFD
}

// TaskMetadataSize is the encoded size of TaskMetadata in bytes.
const TaskMetadataSize = 48

func encodeOptionalFD(buf []byte, o OptionalFD) {
	buf[0] = o.Tag
	for i := 1; i < 8; i++ {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint64(buf[8:16], o.Value)
}

func decodeOptionalFD(buf []byte) OptionalFD {
	return OptionalFD{
		Tag:   buf[0],
		Value: binary.LittleEndian.Uint64(buf[8:16]),
	}
}

// Encode writes the record into buf, which must hold at least
// TaskMetadataSize bytes.
func (m *TaskMetadata) Encode(buf []byte) {
	encodeOptionalFD(buf[0:16], m.Stdout)
	encodeOptionalFD(buf[16:32], m.Stdin)
	encodeOptionalFD(buf[32:48], m.Stderr)
}

// DecodeTaskMetadata reads a record back out of buf.
func DecodeTaskMetadata(buf []byte) (TaskMetadata, ErrorStatus) {
	if len(buf) < TaskMetadataSize {
		return TaskMetadata{}, NotEnoughArguments
	}
	return TaskMetadata{
		Stdout: decodeOptionalFD(buf[0:16]),
		Stdin:  decodeOptionalFD(buf[16:32]),
		Stderr: decodeOptionalFD(buf[32:48]),
	}, OK
}

// SpawnFlags adjust what a spawned task shares with its parent.
type SpawnFlags uint8

const (
	// CloneResources shares the parent's whole descriptor table
	// with the child instead of only the TaskMetadata channels.
	CloneResources SpawnFlags = 1 << iota
	// CloneCwd starts the child in the parent's working directory
	// instead of the root.
	CloneCwd
)
