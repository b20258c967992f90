// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tern-os/tern/abi"
	"github.com/tern-os/tern/kernel/klog"
	"github.com/tern-os/tern/vfs"
)

func bootKernel(t *testing.T, cfg *Config, opts *Options) *Kernel {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
		cfg.Memory.Frames = 256
	}
	if opts == nil {
		opts = &Options{}
	}
	if opts.Log == nil {
		opts.Log = klog.Discard()
	}
	k, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	return k
}

func readVFSFile(t *testing.T, k *Kernel, path string) string {
	t.Helper()
	ctx := context.Background()
	f, code := k.VFS().Open(ctx, vfs.MustParse(path), abi.OpenRead)
	if !code.Ok() {
		t.Fatalf("open %s: %v", path, code)
	}
	defer k.VFS().Close(f)
	var out []byte
	buf := make([]byte, 256)
	for {
		n, code := f.Read(ctx, buf)
		if !code.Ok() {
			t.Fatalf("read %s: %v", path, code)
		}
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

func TestBootMounts(t *testing.T) {
	k := bootKernel(t, nil, nil)

	prefixes := map[string]string{}
	for _, m := range k.Mounts() {
		prefixes[m.Prefix] = m.Backend
	}
	for prefix, backend := range map[string]string{
		"/":     "ramfs",
		"/dev":  "devfs",
		"/proc": "procfs",
	} {
		if got := prefixes[prefix]; got != backend {
			t.Errorf("mount %s: got %q, want %q", prefix, got, backend)
		}
	}

	attr, code := k.VFS().Stat(vfs.MustParse("/tmp"))
	if !code.Ok() || attr.Kind != abi.KindDirectory {
		t.Errorf("/tmp: got (%v, %v), want a directory", attr.Kind, code)
	}
	for _, dev := range []string{"/dev/serial", "/dev/kbd", "/dev/fb0"} {
		attr, code := k.VFS().Stat(vfs.MustParse(dev))
		if !code.Ok() || attr.Kind != abi.KindDevice {
			t.Errorf("%s: got (%v, %v), want a device", dev, attr.Kind, code)
		}
	}
}

func TestBootSysInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.Frames = 64
	cfg.Memory.PageSize = 512
	k := bootKernel(t, cfg, nil)

	si := k.SysInfo()
	if want := uint64(64 * 512); si.TotalMem != want {
		t.Errorf("TotalMem: got %d, want %d", si.TotalMem, want)
	}
	if si.UsedMem != 0 || si.ProcessesCount != 0 {
		t.Errorf("fresh kernel: got used=%d procs=%d, want 0/0", si.UsedMem, si.ProcessesCount)
	}

	text := readVFSFile(t, k, "/proc/meminfo")
	if want := fmt.Sprintf("MemTotal: %d\n", si.TotalMem); !strings.Contains(text, want) {
		t.Errorf("meminfo %q does not contain %q", text, want)
	}
}

func TestBootKernelInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.Frames = 64
	cfg.Name = "testos"
	cfg.Build = "v7"
	k := bootKernel(t, cfg, nil)

	text := readVFSFile(t, k, "/proc/kernelinfo")
	for _, want := range []string{
		"Kernel: testos\n",
		"Build: v7\n",
		"BootID: " + k.BootID().String() + "\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("kernelinfo %q does not contain %q", text, want)
		}
	}
}

func TestMinimalVariantDropsKernelInfo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.Frames = 64
	cfg.Proc.Variant = "minimal"
	k := bootKernel(t, cfg, nil)

	if _, code := k.VFS().Stat(vfs.MustParse("/proc/kernelinfo")); code != abi.NotFound {
		t.Errorf("kernelinfo on minimal variant: got %v, want %v", code, abi.NotFound)
	}
	if _, code := k.VFS().Stat(vfs.MustParse("/proc/cpuinfo")); !code.Ok() {
		t.Errorf("cpuinfo on minimal variant: %v", code)
	}
}

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRamdiskStream(t *testing.T) {
	archive := buildTar(t, map[string]string{"boot/init.rc": "run init\n"})
	k := bootKernel(t, nil, &Options{Ramdisk: bytes.NewReader(archive)})

	if got := readVFSFile(t, k, "/sys/boot/init.rc"); got != "run init\n" {
		t.Errorf("ramdisk file: got %q, want %q", got, "run init\n")
	}
}

func TestRamdiskPathGzip(t *testing.T) {
	archive := buildTar(t, map[string]string{"etc/motd": "welcome\n"})
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(archive); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "ramdisk.tar.gz")
	if err := os.WriteFile(path, gz.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Memory.Frames = 64
	cfg.Ramdisk.Path = path
	k := bootKernel(t, cfg, nil)

	if got := readVFSFile(t, k, "/sys/etc/motd"); got != "welcome\n" {
		t.Errorf("ramdisk file: got %q, want %q", got, "welcome\n")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tern.yaml")
	yaml := `name: testos
build: v9
memory:
  frames: 64
  page_size: 512
cpu:
  count: 2
  vendor: AcmeCorp
  model: Model-T
proc:
  variant: minimal
console:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "testos" || cfg.Build != "v9" {
		t.Errorf("identity: got %q/%q", cfg.Name, cfg.Build)
	}
	if cfg.Memory.Frames != 64 || cfg.Memory.PageSize != 512 {
		t.Errorf("memory: got %+v", cfg.Memory)
	}
	if cfg.CPU.Count != 2 || cfg.CPU.Vendor != "AcmeCorp" || cfg.CPU.Model != "Model-T" {
		t.Errorf("cpu: got %+v", cfg.CPU)
	}
	if cfg.Proc.Variant != "minimal" || cfg.Console.Level != "debug" {
		t.Errorf("variant/level: got %q/%q", cfg.Proc.Variant, cfg.Console.Level)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("TERN_CPU_COUNT", "3")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CPU.Count != 3 {
		t.Errorf("cpu.count: got %d, want 3", cfg.CPU.Count)
	}
	// Untouched fields keep their defaults.
	if cfg.Name != "TernOS" || cfg.Proc.Variant != "full" {
		t.Errorf("defaults: got %q/%q", cfg.Name, cfg.Proc.Variant)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		edit func(*Config)
	}{
		{"zero frames", func(c *Config) { c.Memory.Frames = 0 }},
		{"odd page size", func(c *Config) { c.Memory.PageSize = 1000 }},
		{"no cpus", func(c *Config) { c.CPU.Count = 0 }},
		{"bad level", func(c *Config) { c.Console.Level = "loud" }},
		{"bad variant", func(c *Config) { c.Proc.Variant = "tiny" }},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.edit(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: validation passed, want error", tc.name)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("missing file: got nil error")
	}
}
