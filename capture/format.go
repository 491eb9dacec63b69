// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import "errors"

const (
	// Magic identifies a capture file. It is the first field of the
	// header record.
	Magic = "timeline-capture"

	// FormatVersion is the version written by this package. Readers
	// reject other versions.
	FormatVersion = 1
)

var (
	// ErrNotCapture is returned when the first record is not a capture
	// header.
	ErrNotCapture = errors.New("capture: not a capture file")

	// ErrUnsupportedVersion is returned for a header with a different
	// format version.
	ErrUnsupportedVersion = errors.New("capture: unsupported format version")

	// ErrDigestMismatch is returned when a frame or the session does
	// not match its recorded digest.
	ErrDigestMismatch = errors.New("capture: digest mismatch")

	// ErrCorrupt is returned for records that cannot be interpreted.
	ErrCorrupt = errors.New("capture: corrupt record")
)

// recordType tags each record of the sequence.
type recordType uint8

const (
	recordHeader  recordType = 1
	recordFrame   recordType = 2
	recordTrailer recordType = 3
)

// record is the envelope of every item in the CBOR sequence. Exactly
// one of the pointers is set, matching Type.
type record struct {
	Type    recordType     `cbor:"t"`
	Header  *Header        `cbor:"h,omitempty"`
	Frame   *frameRecord   `cbor:"f,omitempty"`
	Trailer *trailerRecord `cbor:"x,omitempty"`
}

// Header describes a capture session.
type Header struct {
	Magic   string `cbor:"magic"`
	Version int    `cbor:"version"`

	// StartedAt is the capture start, Unix nanoseconds.
	StartedAt int64 `cbor:"started_at"`

	// PacketSize and PacketCount are the stream geometry of the
	// producer that was captured.
	PacketSize  int `cbor:"packet_size"`
	PacketCount int `cbor:"packet_count"`

	// Streams lists the enabled stream kinds by name.
	Streams []string `cbor:"streams"`

	// Compression is the requested compression; individual frames may
	// be stored raw.
	Compression string `cbor:"compression"`

	// Digests reports whether frames carry digests.
	Digests bool `cbor:"digests"`
}

// frameRecord is the stored form of a Frame.
type frameRecord struct {
	Kind        string      `cbor:"kind"`
	Sequence    uint32      `cbor:"seq"`
	Numbered    bool        `cbor:"numbered"`
	Lost        uint64      `cbor:"lost,omitempty"`
	Resync      bool        `cbor:"resync,omitempty"`
	Compression Compression `cbor:"compression"`
	RawSize     int         `cbor:"raw_size"`
	Digest      []byte      `cbor:"digest,omitempty"`
	Data        []byte      `cbor:"data"`
}

// trailerRecord closes a capture.
type trailerRecord struct {
	Frames uint64 `cbor:"frames"`
	Digest []byte `cbor:"digest,omitempty"`
}
