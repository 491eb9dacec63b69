// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Timeline-capture runs a timeline under synthetic load and records
// everything it collects to a capture file.
//
// Producers emit tracepoints round-robin into every enabled stream,
// each limited to --rate messages per second. The autoflush loop ticks
// the streams every timeline.autoflush_interval, and a single drain
// loop copies wire packets from the timeline reader into the capture
// writer.
//
// Data flow:
//
//	producers → tracepoint.Writer → tlstream.Stream → timeline.Reader → capture.Writer → file
//
// The run ends on SIGINT or SIGTERM, after --duration, or once every
// producer has emitted --messages messages. On shutdown the streams
// are flushed and drained so the capture holds every message that was
// not overwritten. With --metrics-listen the stream and reader
// counters are served in Prometheus format at /metrics.
//
// Inspect the result with timeline-inspect.
package main
