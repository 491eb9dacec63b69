// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeline owns a set of timeline streams and turns them into a
// single byte stream of wire packets for a collector.
//
// A [Timeline] holds one [tlstream.Stream] per enabled stream kind. All
// streams share one readiness notifier. [Timeline.Run] drives autoflush
// from a periodic clock tick, so a producer that goes quiet never
// leaves data stranded in a partially filled packet.
//
// A [Reader] is the collector side. Only one Reader may be open at a
// time, because each stream supports a single consumer. Read fills the
// caller's buffer with whole wire packets, blocking until data is
// ready:
//
//	reader, err := tl.NewReader(logger)
//	defer reader.Close()
//	buffer := make([]byte, timeline.MinReadSize)
//	n, err := reader.Read(ctx, buffer)
//
// Each wire packet is an 8-byte header ([Header]), a 4-byte sequence
// number for numbered streams, and the packet's message bytes.
//
// [Collector] exports stream and reader counters to Prometheus.
package timeline
