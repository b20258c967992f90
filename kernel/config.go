// Copyright 2026 the TernOS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tern-os/tern/kernel/klog"
	"github.com/tern-os/tern/kernel/mem"
	"github.com/tern-os/tern/procfs"
)

// MemoryConfig sizes the physical frame allocator.
type MemoryConfig struct {
	Frames   uint64 `yaml:"frames" env:"TERN_MEM_FRAMES" env-default:"4096"`
	PageSize uint64 `yaml:"page_size" env:"TERN_MEM_PAGE_SIZE" env-default:"4096"`
}

// ConsoleConfig controls the boot console log.
type ConsoleConfig struct {
	Level   string `yaml:"level" env:"TERN_CONSOLE_LEVEL" env-default:"info"`
	NoColor bool   `yaml:"no_color" env:"TERN_CONSOLE_NO_COLOR"`
}

// CPUConfig describes the processors reported by /proc/cpuinfo.
type CPUConfig struct {
	Count  int    `yaml:"count" env:"TERN_CPU_COUNT" env-default:"1"`
	Vendor string `yaml:"vendor" env:"TERN_CPU_VENDOR" env-default:"TernVM"`
	Model  string `yaml:"model" env:"TERN_CPU_MODEL" env-default:"virt-1"`
}

// ProcConfig selects which pseudo files /proc publishes.
type ProcConfig struct {
	Variant string `yaml:"variant" env:"TERN_PROC_VARIANT" env-default:"full"`
}

// RamfsConfig bounds the writable root filesystem.
type RamfsConfig struct {
	// MaxBytes caps file data held by the root ramfs. Zero means
	// unbounded.
	MaxBytes uint64 `yaml:"max_bytes" env:"TERN_RAMFS_MAX_BYTES"`
}

// RamdiskConfig points at an optional tar.gz image unpacked into
// /sys at boot.
type RamdiskConfig struct {
	Path string `yaml:"path" env:"TERN_RAMDISK_PATH"`
}

// Config is the whole boot configuration. Values come from an
// optional YAML file with environment variables taking precedence.
type Config struct {
	Name    string        `yaml:"name" env:"TERN_KERNEL_NAME" env-default:"TernOS"`
	Build   string        `yaml:"build" env:"TERN_KERNEL_BUILD" env-default:"dev"`
	Memory  MemoryConfig  `yaml:"memory"`
	Console ConsoleConfig `yaml:"console"`
	CPU     CPUConfig     `yaml:"cpu"`
	Proc    ProcConfig    `yaml:"proc"`
	Ramfs   RamfsConfig   `yaml:"ramfs"`
	Ramdisk RamdiskConfig `yaml:"ramdisk"`
}

// DefaultConfig returns the configuration a bare boot uses.
func DefaultConfig() *Config {
	return &Config{
		Name:    "TernOS",
		Build:   "dev",
		Memory:  MemoryConfig{Frames: 4096, PageSize: mem.DefaultPageSize},
		Console: ConsoleConfig{Level: "info"},
		CPU:     CPUConfig{Count: 1, Vendor: "TernVM", Model: "virt-1"},
		Proc:    ProcConfig{Variant: "full"},
	}
}

// LoadConfig reads the configuration file at path and applies
// environment overrides. An empty path skips the file and uses
// environment and defaults only.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the kernel cannot boot with.
func (c *Config) Validate() error {
	if c.Memory.Frames == 0 {
		return fmt.Errorf("memory.frames must be positive")
	}
	if ps := c.Memory.PageSize; ps == 0 || ps&(ps-1) != 0 {
		return fmt.Errorf("memory.page_size %d is not a power of two", ps)
	}
	if c.CPU.Count < 1 {
		return fmt.Errorf("cpu.count %d: need at least one", c.CPU.Count)
	}
	if _, err := klog.ParseLevel(c.Console.Level); err != nil {
		return err
	}
	if _, err := procfs.ParseVariant(c.Proc.Variant); err != nil {
		return err
	}
	return nil
}
