// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/timeline/tlstream"
)

// EnvironmentVariable names the variable consulted when no --config
// flag is given.
const EnvironmentVariable = "TIMELINE_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local capture sessions.
	Development Environment = "development"
	// Production is for long-running collectors.
	Production Environment = "production"
)

// Compression names accepted by capture.compression.
var compressionNames = []string{"none", "lz4", "zstd"}

// Log levels and formats accepted by the log section.
var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// Config is the configuration shared by the timeline binaries.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Timeline configures the streams and their autoflush.
	Timeline TimelineConfig `yaml:"timeline"`

	// Capture configures the capture file written by the collector.
	Capture CaptureConfig `yaml:"capture"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Timeline *TimelineConfig `yaml:"timeline,omitempty"`
	Capture  *CaptureConfig  `yaml:"capture,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
}

// TimelineConfig configures the stream owner.
type TimelineConfig struct {
	// AutoflushInterval is the period of the autoflush tick. Data left
	// unflushed for two periods is flushed.
	// Default: 200ms
	AutoflushInterval time.Duration `yaml:"autoflush_interval"`

	// Streams lists the enabled stream kinds by name (obj_summary,
	// obj, aux).
	// Default: all kinds
	Streams []string `yaml:"streams"`
}

// CaptureConfig configures capture file output.
type CaptureConfig struct {
	// Output is the capture file path. ${HOME} and ${VAR:-default}
	// patterns are expanded.
	Output string `yaml:"output"`

	// Compression is the per-packet compression: none, lz4, or zstd.
	// Default: zstd
	Compression string `yaml:"compression"`

	// Digest enables a keyed BLAKE3 digest per packet.
	// Default: true
	Digest *bool `yaml:"digest,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address to serve /metrics on. Empty disables it.
	Listen string `yaml:"listen"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`

	// Format is auto, text, or json. auto picks text on a terminal.
	// Default: auto
	Format string `yaml:"format"`
}

// DigestEnabled reports whether per-packet digests are on.
func (c CaptureConfig) DigestEnabled() bool {
	return c.Digest == nil || *c.Digest
}

// Default returns the configuration used when no file is given, and
// the base onto which a file is overlaid.
func Default() *Config {
	return &Config{
		Environment: Development,
		Timeline: TimelineConfig{
			AutoflushInterval: 200 * time.Millisecond,
			Streams:           allStreamNames(),
		},
		Capture: CaptureConfig{
			Output:      "timeline.capture",
			Compression: "zstd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

func allStreamNames() []string {
	names := make([]string, 0, int(tlstream.KindCount))
	for kind := tlstream.KindObjSummary; kind < tlstream.KindCount; kind++ {
		names = append(names, kind.String())
	}
	return names
}

// Load resolves the configuration for a binary. A non-empty path (from
// --config) wins; otherwise TIMELINE_CONFIG is consulted; with neither,
// Default is returned. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file. Files ending in
// .json or .jsonc are parsed as JSON with comments and trailing commas;
// anything else is parsed as YAML. Values are overlaid on Default,
// environment overrides are applied, path variables are expanded, and
// the result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current
// config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Standard JSON is a subset of YAML 1.2, so once comments and
		// trailing commas are stripped the YAML decoder handles it,
		// including duration strings.
		data = jsonc.ToJSON(data)
	}

	// A YAML list replaces the default rather than merging into it.
	c.Timeline.Streams = nil
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	if c.Timeline.Streams == nil {
		c.Timeline.Streams = allStreamNames()
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Production:
		overrides = c.Production
		// Production defaults: machine-readable logs.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Log: &LogConfig{Format: "json"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Timeline != nil {
		if overrides.Timeline.AutoflushInterval != 0 {
			c.Timeline.AutoflushInterval = overrides.Timeline.AutoflushInterval
		}
		if len(overrides.Timeline.Streams) > 0 {
			c.Timeline.Streams = overrides.Timeline.Streams
		}
	}

	if overrides.Capture != nil {
		if overrides.Capture.Output != "" {
			c.Capture.Output = overrides.Capture.Output
		}
		if overrides.Capture.Compression != "" {
			c.Capture.Compression = overrides.Capture.Compression
		}
		if overrides.Capture.Digest != nil {
			c.Capture.Digest = overrides.Capture.Digest
		}
	}

	if overrides.Log != nil {
		if overrides.Log.Level != "" {
			c.Log.Level = overrides.Log.Level
		}
		if overrides.Log.Format != "" {
			c.Log.Format = overrides.Log.Format
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Capture.Output = expandVars(c.Capture.Output, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. Every problem is
// reported, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Timeline.AutoflushInterval <= 0 {
		errs = append(errs, fmt.Errorf("timeline.autoflush_interval must be positive, got %v", c.Timeline.AutoflushInterval))
	}
	if len(c.Timeline.Streams) == 0 {
		errs = append(errs, errors.New("timeline.streams must enable at least one stream"))
	}
	for _, name := range c.Timeline.Streams {
		if _, err := tlstream.ParseKind(name); err != nil {
			errs = append(errs, fmt.Errorf("timeline.streams: %w", err))
		}
	}

	if c.Capture.Output == "" {
		errs = append(errs, errors.New("capture.output is required"))
	}
	if !slices.Contains(compressionNames, c.Capture.Compression) {
		errs = append(errs, fmt.Errorf("capture.compression must be one of: %v", compressionNames))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StreamKinds returns the enabled stream kinds. The configuration must
// have passed Validate.
func (c *Config) StreamKinds() []tlstream.Kind {
	kinds := make([]tlstream.Kind, 0, len(c.Timeline.Streams))
	for _, name := range c.Timeline.Streams {
		kind, err := tlstream.ParseKind(name)
		if err != nil {
			continue
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
