// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture persists collected timeline packets to a file and
// reads them back.
//
// A capture file is a CBOR sequence (RFC 8742) of records encoded with
// lib/codec:
//
//   - one header record: format version, packet geometry, enabled
//     streams, compression, and the capture start time;
//   - one frame record per wire packet, in collection order;
//   - one trailer record written by [Writer.Close]: the frame count and
//     a session digest over every frame digest.
//
// Each frame stores the packet body compressed with lz4 or zstd, or
// raw when compression would not shrink it, together with a BLAKE3
// keyed digest of the uncompressed bytes. [Reader] verifies every
// frame digest and the session digest. A file without a trailer is
// still readable; [Reader.Complete] reports whether the trailer was
// seen.
//
// Frames record the packet's stream kind, its 32-bit wire sequence
// number, and the number of packets the writer saw go missing before
// it, so continuity can be checked offline: for consecutive frames of
// a numbered stream, Sequence == previous Sequence + 1 + Lost, except
// across a frame marked Resync (the timeline was reset).
package capture
