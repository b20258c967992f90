// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package klog is the kernel console log, a thin front over log/slog.
// Subsystems derive their logger with For (which tags records with a
// "mod" attribute), and the console handler renders each record as a
// single line, painting the level when colors are enabled.
package klog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// ModKey is the attribute key the console handler renders as the
// bracketed subsystem prefix instead of a key=value pair.
const ModKey = "mod"

// Options configure New. The zero value logs at Info to os.Stderr
// with colors and timestamps on.
type Options struct {
	// Level is the minimum level that gets written.
	Level slog.Leveler

	// W receives the formatted lines.
	W io.Writer

	// NoColor renders levels as plain text.
	NoColor bool

	// NoTime omits the timestamp. Tests use this for stable output.
	NoTime bool
}

// New returns a logger whose handler writes human-readable lines:
//
//	15:04:05.000 INFO  [vfs] mounted prefix=/proc backend=procfs
//
// Each record is written with a single Write call so lines from
// concurrent subsystems never interleave.
func New(opts *Options) *slog.Logger {
	if opts == nil {
		opts = &Options{}
	}
	w := opts.W
	if w == nil {
		w = os.Stderr
	}
	h := &consoleHandler{
		level:  opts.Level,
		w:      w,
		mu:     &sync.Mutex{},
		noTime: opts.NoTime,
		paint:  newPalette(opts.NoColor),
	}
	return slog.New(h)
}

// For derives the subsystem logger for mod.
func For(l *slog.Logger, mod string) *slog.Logger {
	return l.With(slog.String(ModKey, mod))
}

// ParseLevel maps a configuration string such as "debug" or "WARN"
// to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("console level %q: %w", s, err)
	}
	return l, nil
}

// Discard returns a logger that drops every record. Tests use it
// where a component wants a logger but the output is irrelevant.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

type palette struct {
	debug, info, warn, err *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		debug: color.New(color.FgMagenta),
		info:  color.New(color.FgCyan),
		warn:  color.New(color.FgYellow),
		err:   color.New(color.FgRed, color.Bold),
	}
	// Decide explicitly rather than letting the library sniff for a
	// TTY; the console writer is rarely one.
	for _, c := range []*color.Color{p.debug, p.info, p.warn, p.err} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p palette) level(l slog.Level) *color.Color {
	switch {
	case l >= slog.LevelError:
		return p.err
	case l >= slog.LevelWarn:
		return p.warn
	case l >= slog.LevelInfo:
		return p.info
	default:
		return p.debug
	}
}

type consoleHandler struct {
	level  slog.Leveler
	w      io.Writer
	mu     *sync.Mutex
	noTime bool
	paint  palette

	// attrs carry their group path in the key already.
	attrs  []slog.Attr
	groups []string
}

var _ = (slog.Handler)((*consoleHandler)(nil))

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return l >= min
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !h.noTime && !r.Time.IsZero() {
		b.WriteString(r.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	b.WriteString(h.paint.level(r.Level).Sprintf("%-5s", r.Level.String()))
	b.WriteByte(' ')

	kvs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	kvs = append(kvs, h.attrs...)
	prefix := h.prefix()
	r.Attrs(func(a slog.Attr) bool {
		kvs = flatten(kvs, prefix, a)
		return true
	})

	mod := ""
	rest := kvs[:0]
	for _, a := range kvs {
		if a.Key == ModKey {
			mod = a.Value.String()
			continue
		}
		rest = append(rest, a)
	}

	if mod != "" {
		b.WriteByte('[')
		b.WriteString(mod)
		b.WriteString("] ")
	}
	b.WriteString(r.Message)
	for _, a := range rest {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(quote(a.Value.String()))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := h.clone()
	prefix := h.prefix()
	for _, a := range attrs {
		h2.attrs = flatten(h2.attrs, prefix, a)
	}
	return h2
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.groups = append(h2.groups, name)
	return h2
}

func (h *consoleHandler) clone() *consoleHandler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	h2.groups = append([]string(nil), h.groups...)
	return &h2
}

func (h *consoleHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// flatten resolves a, expands group values and appends the result to
// dst with the group path folded into the key.
func flatten(dst []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			dst = flatten(dst, p, ga)
		}
		return dst
	}
	if a.Key == "" && v.Any() == nil {
		return dst
	}
	a.Key = prefix + a.Key
	a.Value = v
	return append(dst, a)
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
