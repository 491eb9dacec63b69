// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tlstream implements a timeline stream: a fixed pool of
// packet-sized buffers into which any number of producers append
// timestamped trace messages, and from which a single consumer collects
// finalized packets.
//
// Producers reserve space with [Stream.Acquire], write the message
// bytes into the returned region, and end the critical section with
// [Stream.Release]. Acquire and Release are serialized by a spin lock,
// so messages land in the stream in exactly the order their producers
// took the lock: a timestamp read between Acquire and Release is never
// older than any timestamp already in the stream. Messages are never
// split across packets; when the current packet cannot hold a message
// the packet is finalized and the message starts a new one.
//
// The pool has [PacketCount] packets of [PacketSize] bytes each. When
// the consumer falls behind, producers overwrite the oldest unread
// packet. Overwriting is not an error: the consumer sees it as a jump
// in the packet sequence number and as a non-zero [Packet.Lost].
//
// Partially filled packets become visible in two ways: [Stream.Flush]
// finalizes the current packet immediately, and [Stream.Tick], called
// by the owner on a periodic timer, flushes a stream that has seen no
// Release for two consecutive ticks.
//
// # Critical section rules
//
// Code between Acquire and Release runs with the stream locked and
// every other producer spinning. It must not allocate, block, sleep,
// or call back into the same stream. The stream itself honors the same
// rule: no allocation, no logging, and the [Notifier] is only invoked
// after the lock has been dropped.
//
// # Build profiles
//
// The default build uses 32 packets per stream. Building with the
// tlstream_rich tag selects 64 packets for heavily instrumented
// workloads (job and vector dumping).
package tlstream
