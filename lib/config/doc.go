// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the timeline
// binaries.
//
// Configuration comes from a single file named by the --config flag
// or, failing that, the TIMELINE_CONFIG environment variable. There is
// no automatic discovery. With neither set, [Default] applies. Command
// line flags override file values; that layering is the binary's job.
//
// Files ending in .json or .jsonc are JSON with comments and trailing
// commas allowed; everything else is YAML.
//
// The file may contain environment-specific sections (development,
// production) that override base values when [Config].Environment
// matches. Production defaults to JSON logs.
//
// Key exports:
//
//   - [Config] -- Timeline, Capture, Metrics, Log sections
//   - [Default] -- the built-in configuration
//   - [Load] and [LoadFile] -- the two entry points for loading
package config
