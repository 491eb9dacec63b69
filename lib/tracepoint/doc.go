// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracepoint encodes timeline messages into stream packets and
// decodes them back for tooling.
//
// A message is a fixed 16-byte header followed by its arguments, all
// little-endian:
//
//	offset  size  field
//	0       4     tracepoint id
//	4       8     timestamp (nanoseconds, monotonic raw clock)
//	12      4     argument length in bytes
//	16      n     arguments
//
// [Writer.Emit] takes the timestamp inside the stream's critical
// section, after Acquire, so timestamps within a stream increase in
// the same order as the messages appear in its packets.
package tracepoint
