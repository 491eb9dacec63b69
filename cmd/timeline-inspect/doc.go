// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Timeline-inspect reads a capture file written by timeline-capture,
// verifies it, and prints a per-stream summary.
//
// Verification covers every frame digest and the session digest in
// the trailer (reading stops at the first mismatch), sequence
// continuity of numbered streams, and the message layout of every
// packet. Timestamps inside one stream must never go backwards: they
// are taken while the stream is locked, so a regression means the
// capture is not what the producers wrote.
//
// Output is a styled table on a terminal and plain text otherwise;
// --json prints the summary as JSON and --frames lists every frame.
// The exit status is 2 when verification finds a problem and 1 when
// the file cannot be read.
package main
