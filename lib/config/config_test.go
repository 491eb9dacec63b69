// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/timeline/lib/testutil"
	"github.com/bureau-foundation/timeline/tlstream"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Timeline.AutoflushInterval != 200*time.Millisecond {
		t.Errorf("expected autoflush_interval=200ms, got %v", cfg.Timeline.AutoflushInterval)
	}
	if got := len(cfg.StreamKinds()); got != int(tlstream.KindCount) {
		t.Errorf("expected all %d streams enabled, got %d", tlstream.KindCount, got)
	}
	if cfg.Capture.Compression != "zstd" {
		t.Errorf("expected compression=zstd, got %s", cfg.Capture.Compression)
	}
	if !cfg.Capture.DigestEnabled() {
		t.Error("expected digest enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() does not validate: %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Capture.Output != Default().Capture.Output {
		t.Errorf("expected default output, got %s", cfg.Capture.Output)
	}
}

func TestLoad_EnvironmentVariable(t *testing.T) {
	path := testutil.WriteFile(t, "timeline.yaml", `
timeline:
  autoflush_interval: 1s
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Timeline.AutoflushInterval != time.Second {
		t.Errorf("expected autoflush_interval=1s, got %v", cfg.Timeline.AutoflushInterval)
	}
}

func TestLoad_FlagWinsOverEnvironmentVariable(t *testing.T) {
	fromEnv := testutil.WriteFile(t, "env.yaml", "capture:\n  output: from-env.capture\n")
	fromFlag := testutil.WriteFile(t, "flag.yaml", "capture:\n  output: from-flag.capture\n")
	t.Setenv(EnvironmentVariable, fromEnv)

	cfg, err := Load(fromFlag)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Capture.Output != "from-flag.capture" {
		t.Errorf("expected flag file to win, got output %s", cfg.Capture.Output)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := testutil.WriteFile(t, "timeline.yaml", `
environment: development
timeline:
  autoflush_interval: 50ms
  streams: [obj, aux]
capture:
  output: /tmp/session.capture
  compression: lz4
  digest: false
metrics:
  listen: 127.0.0.1:9464
log:
  level: debug
  format: text
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Timeline.AutoflushInterval != 50*time.Millisecond {
		t.Errorf("autoflush_interval = %v, want 50ms", cfg.Timeline.AutoflushInterval)
	}
	kinds := cfg.StreamKinds()
	if len(kinds) != 2 || kinds[0] != tlstream.KindObj || kinds[1] != tlstream.KindAux {
		t.Errorf("StreamKinds() = %v, want [obj aux]", kinds)
	}
	if cfg.Capture.Output != "/tmp/session.capture" {
		t.Errorf("output = %s", cfg.Capture.Output)
	}
	if cfg.Capture.Compression != "lz4" {
		t.Errorf("compression = %s, want lz4", cfg.Capture.Compression)
	}
	if cfg.Capture.DigestEnabled() {
		t.Error("expected digest disabled")
	}
	if cfg.Metrics.Listen != "127.0.0.1:9464" {
		t.Errorf("metrics.listen = %s", cfg.Metrics.Listen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v, want debug/text", cfg.Log)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := testutil.WriteFile(t, "timeline.jsonc", `{
  // Collector used in CI.
  "timeline": {
    "autoflush_interval": "500ms",
    "streams": ["obj_summary"], /* only the summary */
  },
  "capture": {"compression": "none"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Timeline.AutoflushInterval != 500*time.Millisecond {
		t.Errorf("autoflush_interval = %v, want 500ms", cfg.Timeline.AutoflushInterval)
	}
	if kinds := cfg.StreamKinds(); len(kinds) != 1 || kinds[0] != tlstream.KindObjSummary {
		t.Errorf("StreamKinds() = %v, want [obj_summary]", kinds)
	}
	if cfg.Capture.Compression != "none" {
		t.Errorf("compression = %s, want none", cfg.Capture.Compression)
	}
	// Untouched sections keep their defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %s, want default info", cfg.Log.Level)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/timeline.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantFormat string
		wantLevel  string
		wantOutput string
	}{
		{
			name:       "development section applies",
			content:    "development:\n  log:\n    level: debug\n",
			wantFormat: "auto",
			wantLevel:  "debug",
			wantOutput: "timeline.capture",
		},
		{
			name:       "production defaults to json logs",
			content:    "environment: production\n",
			wantFormat: "json",
			wantLevel:  "info",
			wantOutput: "timeline.capture",
		},
		{
			name: "production section replaces production defaults",
			content: `
environment: production
production:
  capture:
    output: /var/lib/timeline/live.capture
`,
			wantFormat: "auto",
			wantLevel:  "info",
			wantOutput: "/var/lib/timeline/live.capture",
		},
		{
			name: "inactive section ignored",
			content: `
environment: development
production:
  log:
    level: error
`,
			wantFormat: "auto",
			wantLevel:  "info",
			wantOutput: "timeline.capture",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadFile(testutil.WriteFile(t, "timeline.yaml", test.content))
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if cfg.Log.Format != test.wantFormat {
				t.Errorf("log.format = %s, want %s", cfg.Log.Format, test.wantFormat)
			}
			if cfg.Log.Level != test.wantLevel {
				t.Errorf("log.level = %s, want %s", cfg.Log.Level, test.wantLevel)
			}
			if cfg.Capture.Output != test.wantOutput {
				t.Errorf("capture.output = %s, want %s", cfg.Capture.Output, test.wantOutput)
			}
		})
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("TIMELINE_TEST_DIR", "/data")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{"${HOME}/x", map[string]string{"HOME": "/home/u"}, "/home/u/x"},
		{"${TIMELINE_TEST_DIR}/x", nil, "/data/x"},
		{"${TIMELINE_TEST_UNSET:-/fallback}/x", nil, "/fallback/x"},
		{"plain/path", nil, "plain/path"},
	}

	for _, test := range tests {
		if got := expandVars(test.input, test.vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestLoadFile_ExpandsOutput(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg, err := LoadFile(testutil.WriteFile(t, "timeline.yaml", "capture:\n  output: ${HOME}/session.capture\n"))
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Capture.Output != "/home/tester/session.capture" {
		t.Errorf("capture.output = %s", cfg.Capture.Output)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "staging" }, "invalid environment"},
		{"zero interval", func(c *Config) { c.Timeline.AutoflushInterval = 0 }, "autoflush_interval"},
		{"no streams", func(c *Config) { c.Timeline.Streams = []string{} }, "at least one stream"},
		{"unknown stream", func(c *Config) { c.Timeline.Streams = []string{"gpu"} }, "unknown stream kind"},
		{"no output", func(c *Config) { c.Capture.Output = "" }, "capture.output"},
		{"bad compression", func(c *Config) { c.Capture.Compression = "gzip" }, "capture.compression"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Capture.Compression = "gzip"
	cfg.Log.Level = "trace"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"capture.compression", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	path := testutil.WriteFile(t, "timeline.yaml", "capture:\n  compression: brotli\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected LoadFile to validate")
	}
}

func TestStreamKindsDeduplicates(t *testing.T) {
	cfg := Default()
	cfg.Timeline.Streams = []string{"aux", "obj", "aux"}
	kinds := cfg.StreamKinds()
	if len(kinds) != 2 || kinds[0] != tlstream.KindAux || kinds[1] != tlstream.KindObj {
		t.Errorf("StreamKinds() = %v, want [aux obj]", kinds)
	}
}
