// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFormats(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	tests := []struct {
		format   string
		wantJSON bool
	}{
		{"json", true},
		{"text", false},
		// A bytes.Buffer is never a terminal.
		{"auto", true},
		{"", true},
	}
	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			var buffer bytes.Buffer
			logger, err := New(&buffer, "info", test.format)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			logger.Info("stream flushed", "stream", "obj")

			line := strings.TrimSpace(buffer.String())
			var decoded map[string]any
			isJSON := json.Unmarshal([]byte(line), &decoded) == nil
			if isJSON != test.wantJSON {
				t.Fatalf("output %q: JSON = %v, want %v", line, isJSON, test.wantJSON)
			}
			if !strings.Contains(line, "stream flushed") {
				t.Errorf("output %q is missing the message", line)
			}
		})
	}
}

func TestNewLevelFilters(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buffer bytes.Buffer
	logger, err := New(&buffer, "warn", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept")

	output := buffer.String()
	if strings.Contains(output, "dropped") {
		t.Errorf("info record written at warn level: %q", output)
	}
	if !strings.Contains(output, "kept") {
		t.Errorf("warn record missing: %q", output)
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	var buffer bytes.Buffer
	if _, err := New(&buffer, "trace", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(&buffer, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"DEBUG": slog.LevelDebug,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", name, err)
			continue
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}
