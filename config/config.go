// Package config loads poolscan rules files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dhamidi/poolscan/classfile"
)

// ErrNoLocalConfig is returned by LoadLocal when no rules file exists.
var ErrNoLocalConfig = errors.New("no local config")

// Config is the on-disk rules file shape. Pointer fields distinguish
// "unset" from zero values so that flags and files can be merged.
type Config struct {
	// Targets are matched against Utf8 constants as written.
	Targets []string `yaml:"targets" toml:"targets"`

	// Classes are class names in dotted or internal form. Each one adds
	// its internal name and its field descriptor as targets.
	Classes []string `yaml:"classes" toml:"classes"`

	Mode            *string  `yaml:"mode" toml:"mode"`
	MaxMajorVersion *uint16  `yaml:"max_major_version" toml:"max_major_version"`
	Include         []string `yaml:"include" toml:"include"`
	Exclude         []string `yaml:"exclude" toml:"exclude"`
	Workers         *int     `yaml:"workers" toml:"workers"`
	NestedArchives  *bool    `yaml:"nested_archives" toml:"nested_archives"`
	MaxEntryBytes   *int64   `yaml:"max_entry_bytes" toml:"max_entry_bytes"`
}

var localNames = []string{
	".poolscan.yml",
	".poolscan.yaml",
	"poolscan.yml",
	"poolscan.yaml",
	".poolscan.toml",
	"poolscan.toml",
}

// LoadFile reads a rules file. The format is chosen by extension.
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// LoadLocal looks for a rules file in dir.
func LoadLocal(dir string) (Config, string, error) {
	for _, name := range localNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			cfg, err := LoadFile(p)
			return cfg, p, err
		}
	}
	return Config{}, "", ErrNoLocalConfig
}

// Merge returns c overlaid with o. Set scalars in o win; lists append.
func (c Config) Merge(o Config) Config {
	out := c
	out.Targets = append(append([]string(nil), c.Targets...), o.Targets...)
	out.Classes = append(append([]string(nil), c.Classes...), o.Classes...)
	out.Include = append(append([]string(nil), c.Include...), o.Include...)
	out.Exclude = append(append([]string(nil), c.Exclude...), o.Exclude...)
	if o.Mode != nil {
		out.Mode = o.Mode
	}
	if o.MaxMajorVersion != nil {
		out.MaxMajorVersion = o.MaxMajorVersion
	}
	if o.Workers != nil {
		out.Workers = o.Workers
	}
	if o.NestedArchives != nil {
		out.NestedArchives = o.NestedArchives
	}
	if o.MaxEntryBytes != nil {
		out.MaxEntryBytes = o.MaxEntryBytes
	}
	return out
}

func (c Config) Validate() error {
	var errs []error
	if _, err := c.MatchMode(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers != nil && *c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative: %d", *c.Workers))
	}
	if c.MaxEntryBytes != nil && *c.MaxEntryBytes < 0 {
		errs = append(errs, fmt.Errorf("max_entry_bytes must not be negative: %d", *c.MaxEntryBytes))
	}
	for _, t := range c.AllTargets() {
		if t == "" {
			errs = append(errs, errors.New("empty target"))
			break
		}
	}
	return errors.Join(errs...)
}

func (c Config) MatchMode() (classfile.MatchMode, error) {
	if c.Mode == nil {
		return classfile.Exact, nil
	}
	return classfile.ParseMatchMode(*c.Mode)
}

// AllTargets expands Classes and appends them to Targets, dropping
// duplicates while keeping first-seen order.
func (c Config) AllTargets() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, t := range c.Targets {
		add(t)
	}
	for _, name := range c.Classes {
		internal := classfile.SourceToInternalName(strings.TrimSpace(name))
		add(internal)
		add(classfile.ClassDescriptor(internal))
	}
	return out
}

// Scanner builds a scanner for the configured targets and ceiling.
func (c Config) Scanner() *classfile.Scanner {
	var opts []classfile.Option
	if c.MaxMajorVersion != nil {
		opts = append(opts, classfile.WithMaxMajorVersion(*c.MaxMajorVersion))
	}
	return classfile.New(c.AllTargets(), opts...)
}

func (c Config) WorkerCount(fallback int) int {
	if c.Workers == nil || *c.Workers == 0 {
		return fallback
	}
	return *c.Workers
}

func (c Config) Nested() bool {
	return c.NestedArchives != nil && *c.NestedArchives
}

func (c Config) EntryLimit() int64 {
	if c.MaxEntryBytes == nil {
		return 0
	}
	return *c.MaxEntryBytes
}
