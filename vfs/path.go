// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vfs

import (
	"strings"
	"unicode/utf8"

	"github.com/tern-os/tern/abi"
)

// Path is a parsed, normalised path: a component sequence plus an
// absolute-vs-relative flag. A trailing slash in the input is kept
// as a hint that the target must be a directory. Parsing is total
// and allocates nothing beyond the component slice.
type Path struct {
	absolute bool
	dirHint  bool
	comps    []string
}

// Parse normalises raw into a Path. Empty components and "."
// collapse; ".." pops the previous component, clamps at the root of
// an absolute path and is preserved at the head of a relative one.
// NUL bytes, invalid UTF-8, the empty string and components longer
// than abi.MaxNameLen fail with InvalidPath.
func Parse(raw string) (Path, abi.ErrorStatus) {
	if raw == "" {
		return Path{}, abi.InvalidPath
	}
	if !utf8.ValidString(raw) || strings.IndexByte(raw, 0) >= 0 {
		return Path{}, abi.InvalidPath
	}

	p := Path{
		absolute: raw[0] == '/',
		dirHint:  raw[len(raw)-1] == '/',
	}
	for _, c := range strings.Split(raw, "/") {
		switch c {
		case "", ".":
		case "..":
			if n := len(p.comps); n > 0 && p.comps[n-1] != ".." {
				p.comps = p.comps[:n-1]
			} else if !p.absolute {
				p.comps = append(p.comps, "..")
			}
		default:
			if len(c) > abi.MaxNameLen {
				return Path{}, abi.InvalidPath
			}
			p.comps = append(p.comps, c)
		}
	}
	if p.absolute && len(p.comps) == 0 {
		// The root is always a directory.
		p.dirHint = true
	}
	return p, abi.OK
}

// MustParse is Parse for compile-time constants; it panics on
// invalid input and is meant for boot wiring only.
func MustParse(raw string) Path {
	p, code := Parse(raw)
	if !code.Ok() {
		panic("vfs: invalid path constant " + raw + ": " + code.String())
	}
	return p
}

// IsAbs reports whether the path is absolute.
func (p Path) IsAbs() bool {
	return p.absolute
}

// DirHint reports whether the input named a directory explicitly.
func (p Path) DirHint() bool {
	return p.dirHint
}

// Components returns the normalised component sequence. Callers
// must not mutate it.
func (p Path) Components() []string {
	return p.comps
}

// Base returns the final component, or "" for the root and for
// empty relative paths.
func (p Path) Base() string {
	if len(p.comps) == 0 {
		return ""
	}
	return p.comps[len(p.comps)-1]
}

// Parent returns the path with the final component removed. The
// root is its own parent.
func (p Path) Parent() Path {
	if len(p.comps) == 0 {
		if p.absolute {
			return p
		}
		return Path{comps: []string{".."}}
	}
	out := Path{absolute: p.absolute, comps: p.comps[:len(p.comps)-1]}
	out.dirHint = true
	return out
}

// Join resolves rel against p. An absolute rel wins outright;
// otherwise rel's components are applied on top of p's.
func (p Path) Join(rel Path) Path {
	if rel.absolute {
		return rel
	}
	comps := append([]string(nil), p.comps...)
	for _, c := range rel.comps {
		if c == ".." {
			if n := len(comps); n > 0 && comps[n-1] != ".." {
				comps = comps[:n-1]
			} else if !p.absolute {
				comps = append(comps, "..")
			}
		} else {
			comps = append(comps, c)
		}
	}
	out := Path{absolute: p.absolute, dirHint: rel.dirHint, comps: comps}
	if out.absolute && len(out.comps) == 0 {
		out.dirHint = true
	}
	return out
}

// Equal reports whether two paths are component-wise identical,
// including the directory hint.
func (p Path) Equal(o Path) bool {
	if p.absolute != o.absolute || p.dirHint != o.dirHint || len(p.comps) != len(o.comps) {
		return false
	}
	for i := range p.comps {
		if p.comps[i] != o.comps[i] {
			return false
		}
	}
	return true
}

// String renders the canonical form. Parsing the result yields a
// path equal to p.
func (p Path) String() string {
	if p.absolute {
		if len(p.comps) == 0 {
			return "/"
		}
		s := "/" + strings.Join(p.comps, "/")
		if p.dirHint {
			s += "/"
		}
		return s
	}
	if len(p.comps) == 0 {
		if p.dirHint {
			return "./"
		}
		return "."
	}
	s := strings.Join(p.comps, "/")
	if p.dirHint {
		s += "/"
	}
	return s
}
