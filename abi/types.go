// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abi

import "fmt"

// FileKind distinguishes the inode families the filesystem serves.
// Pseudo marks synthesised files whose size is unknowable until
// they are opened.
type FileKind uint8

const (
	KindRegular FileKind = iota
	KindDirectory
	KindDevice
	KindPseudo
)

func (k FileKind) String() string {
	switch k {
	case KindRegular:
		return "Regular"
	case KindDirectory:
		return "Directory"
	case KindDevice:
		return "Device"
	case KindPseudo:
		return "Pseudo"
	}
	return fmt.Sprintf("FileKind(%d)", uint8(k))
}

// FilePerm is the permission word carried by an inode.
type FilePerm uint16

const (
	PermRead FilePerm = 1 << iota
	PermWrite
	PermExec
)

// PermRW grants both access modes of ordinary files.
const PermRW = PermRead | PermWrite

// PermAll additionally grants execute.
const PermAll = PermRead | PermWrite | PermExec

// OpenFlags select the access mode and behaviour of an open file.
type OpenFlags uint32

const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenAppend
	OpenNonBlock
	OpenCreate
	OpenExclusive
)

// CreateNew is the flag word used for exclusive creation: the open
// fails with AlreadyExists when the path already resolves.
const CreateNew = OpenWrite | OpenCreate | OpenExclusive

// Readable reports whether reads are permitted on the open file.
func (f OpenFlags) Readable() bool {
	return f&OpenRead != 0
}

// Writable reports whether writes are permitted on the open file.
func (f OpenFlags) Writable() bool {
	return f&OpenWrite != 0
}

// MaxNameLen caps the byte length of a single path component.
const MaxNameLen = 128

// FileAttr is the metadata returned by stat.
type FileAttr struct {
	Ino  uint64
	Kind FileKind
	Size uint64
	Perm FilePerm
}

// DirEntry is one directory listing record. Name is at most
// MaxNameLen bytes.
type DirEntry struct {
	Name string
	Ino  uint64
	Kind FileKind
}
