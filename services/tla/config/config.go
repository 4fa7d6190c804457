// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the adapter configuration.
//
// Precedence, lowest first: embedded defaults.yaml, the YAML file named by
// --config or TLAPLUS_CONFIG, TLAPLUS_* environment variables, command
// line flags (applied by the caller through Overrides).
//
// Thread Safety:
//
//	A loaded Config is a plain value; treat it as read-only once shared.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gopkg.in/yaml.v3"

	"github.com/photoszzt/vscode-tlaplus/services/tla/fault"
	"github.com/photoszzt/vscode-tlaplus/services/tla/telemetry"
	"github.com/photoszzt/vscode-tlaplus/services/tla/workspace"
)

// MaxFileSize bounds the configuration file.
const MaxFileSize = 1024 * 1024

// Environment variables.
const (
	EnvConfig     = "TLAPLUS_CONFIG"
	EnvToolsDir   = "TLAPLUS_TOOLS_DIR"
	EnvJavaHome   = "TLAPLUS_JAVA_HOME"
	EnvWorkingDir = "TLAPLUS_WORKING_DIR"
	EnvKBDir      = "TLAPLUS_KB_DIR"
	EnvCacheDir   = "TLAPLUS_CACHE_DIR"
)

// Cache index backends.
const (
	IndexMemory = "memory"
	IndexBadger = "badger"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	configLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tlaplus_config_loads_total",
		Help: "Configuration loads by source",
	}, []string{"source"})

	configLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tlaplus_config_load_errors_total",
		Help: "Configuration files that failed to load",
	})
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// TYPES
// =============================================================================

// Config is the complete adapter configuration.
type Config struct {
	ToolsDir   string `yaml:"tools_dir"`
	JavaHome   string `yaml:"java_home"`
	WorkingDir string `yaml:"working_dir"`
	KBDir      string `yaml:"kb_dir"`

	Cache     CacheConfig      `yaml:"cache"`
	Retry     fault.Policy     `yaml:"retry"`
	Process   ProcessConfig    `yaml:"process"`
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// CacheConfig controls archive extraction.
type CacheConfig struct {
	// Dir holds extracted archive entries. Empty means the user cache
	// directory.
	Dir string `yaml:"dir"`

	// Index is "memory" or "badger".
	Index string `yaml:"index" validate:"oneof=memory badger"`
}

// ProcessConfig bounds Java tool runs.
type ProcessConfig struct {
	// Timeout bounds SANY and symbol extraction runs.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// TLCTimeout bounds TLC runs. Zero means no limit.
	TLCTimeout time.Duration `yaml:"tlc_timeout" validate:"gte=0"`

	// KillGrace is the wait between the polite and the forced kill.
	KillGrace time.Duration `yaml:"kill_grace" validate:"gt=0"`
}

// ServerConfig controls `tlaplus serve`.
type ServerConfig struct {
	Addr      string  `yaml:"addr" validate:"required,hostname_port"`
	RateLimit float64 `yaml:"rate_limit" validate:"gt=0"`
	Burst     int     `yaml:"burst" validate:"min=1"`
}

// LoggingConfig controls pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// Overrides carries command line flags. Empty fields are ignored.
type Overrides struct {
	ToolsDir   string
	JavaHome   string
	WorkingDir string
	KBDir      string
	CacheDir   string
	Verbose    bool
}

// =============================================================================
// LOADING
// =============================================================================

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := decode(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml: %v", err))
	}
	return cfg
}

// Load builds a Config from defaults, the optional file at path (or
// TLAPLUS_CONFIG when path is empty) and the environment.
//
// Description:
//
//	Keys absent from the file keep their default. Unknown keys are an
//	error so that typos do not pass silently. The result is not yet
//	validated; call Apply and then Validate.
//
// Errors:
//
//	fault.KindInvalidConfigPath - the file is missing or too large.
//	ErrInvalid - the file is not valid YAML for Config.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		data, err := readFile(path)
		if err != nil {
			configLoadErrors.Inc()
			return nil, err
		}
		if err := decode(data, cfg); err != nil {
			configLoadErrors.Inc()
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
		}
		cfg.Source = path
		configLoads.WithLabelValues("file").Inc()
	} else {
		configLoads.WithLabelValues("default").Inc()
	}

	cfg.applyEnv(lookup)
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fault.Wrap(fault.KindInvalidConfigPath, err,
			fmt.Sprintf("Configuration file not found: %s", path)).WithContext("path", path)
	}
	if info.Size() > MaxFileSize {
		return nil, fault.Newf(fault.KindInvalidConfigPath,
			"Configuration file too large: %d bytes (max %d)", info.Size(), MaxFileSize).WithContext("path", path)
	}
	return os.ReadFile(path)
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.ToolsDir, EnvToolsDir)
	set(&c.JavaHome, EnvJavaHome)
	set(&c.WorkingDir, EnvWorkingDir)
	set(&c.KBDir, EnvKBDir)
	set(&c.Cache.Dir, EnvCacheDir)
}

// Apply merges command line flags.
func (c *Config) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.ToolsDir, o.ToolsDir)
	set(&c.JavaHome, o.JavaHome)
	set(&c.WorkingDir, o.WorkingDir)
	set(&c.KBDir, o.KBDir)
	set(&c.Cache.Dir, o.CacheDir)
	if o.Verbose {
		c.Logging.Level = "debug"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks field constraints, makes directory paths absolute and
// verifies that configured directories exist.
//
// Errors:
//
//	ErrInvalid - a field constraint failed.
//	fault.KindInvalidConfigPath - a configured directory is unusable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: retry: %v", ErrInvalid, err)
	}

	dirs := []struct {
		path *string
		name string
	}{
		{&c.ToolsDir, "Tools"},
		{&c.JavaHome, "Java home"},
		{&c.WorkingDir, "Working"},
		{&c.KBDir, "Knowledge base"},
	}
	for _, d := range dirs {
		if *d.path == "" {
			continue
		}
		abs, err := filepath.Abs(expandHome(*d.path))
		if err != nil {
			return fault.Wrap(fault.KindInvalidConfigPath, err, fmt.Sprintf("%s directory: %s", d.name, *d.path))
		}
		if err := workspace.ValidateDir(abs, d.name); err != nil {
			return err
		}
		*d.path = abs
	}
	if c.Cache.Dir != "" {
		abs, err := filepath.Abs(expandHome(c.Cache.Dir))
		if err != nil {
			return fault.Wrap(fault.KindInvalidConfigPath, err, fmt.Sprintf("Cache directory: %s", c.Cache.Dir))
		}
		c.Cache.Dir = abs
	}
	return nil
}

// CacheDir returns the cache directory, defaulting to "tlaplus" under the
// user cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate user cache directory: %w", err)
	}
	return filepath.Join(base, "tlaplus"), nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
