// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/timeline/lib/codec"
	"github.com/bureau-foundation/timeline/tlstream"
)

// Frame is one captured packet, decompressed and verified.
type Frame struct {
	Kind     tlstream.Kind
	Sequence uint32
	Numbered bool

	// Lost is the number of packets of this stream the writer saw go
	// missing immediately before this one.
	Lost uint64

	// Resync marks the first frame after the sequence restarted.
	Resync bool

	// Compression is how the frame was stored.
	Compression Compression

	// StoredSize is the size of the frame data in the file.
	StoredSize int

	// Digest is the recorded digest, zero when the capture has none.
	Digest Digest

	// Data is the uncompressed packet body.
	Data []byte
}

// Reader reads a capture file. It is not safe for concurrent use.
type Reader struct {
	decoder *codec.Decoder
	header  Header
	session *sessionHasher

	frames   uint64
	complete bool
	done     bool
}

// NewReader reads and validates the capture header from r.
func NewReader(r io.Reader) (*Reader, error) {
	decoder := codec.NewDecoder(r)
	var first record
	if err := decoder.Decode(&first); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrNotCapture)
		}
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if first.Type != recordHeader || first.Header == nil || first.Header.Magic != Magic {
		return nil, ErrNotCapture
	}
	if first.Header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, first.Header.Version)
	}

	reader := &Reader{decoder: decoder, header: *first.Header}
	if first.Header.Digests {
		reader.session = newSessionHasher()
	}
	return reader, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header {
	return r.header
}

// Complete reports whether the trailer has been read and verified.
// It is meaningful once Next has returned io.EOF.
func (r *Reader) Complete() bool {
	return r.complete
}

// Next returns the next frame, or io.EOF after the last one. A frame
// whose data does not match its digest returns ErrDigestMismatch.
func (r *Reader) Next() (Frame, error) {
	if r.done {
		return Frame{}, io.EOF
	}
	var item record
	if err := r.decoder.Decode(&item); err != nil {
		if errors.Is(err, io.EOF) {
			r.done = true
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	switch item.Type {
	case recordFrame:
		if item.Frame == nil {
			return Frame{}, fmt.Errorf("%w: frame record %d without frame", ErrCorrupt, r.frames)
		}
		return r.frame(item.Frame)
	case recordTrailer:
		if item.Trailer == nil {
			return Frame{}, fmt.Errorf("%w: trailer record without trailer", ErrCorrupt)
		}
		r.done = true
		if err := r.verifyTrailer(item.Trailer); err != nil {
			return Frame{}, err
		}
		r.complete = true
		return Frame{}, io.EOF
	default:
		return Frame{}, fmt.Errorf("%w: unexpected record type %d", ErrCorrupt, item.Type)
	}
}

func (r *Reader) frame(stored *frameRecord) (Frame, error) {
	index := r.frames
	r.frames++

	kind, err := tlstream.ParseKind(stored.Kind)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame %d: %v", ErrCorrupt, index, err)
	}
	if stored.RawSize < 0 || stored.RawSize > tlstream.PacketSize {
		return Frame{}, fmt.Errorf("%w: frame %d claims %d bytes", ErrCorrupt, index, stored.RawSize)
	}
	data, err := decompress(stored.Data, stored.Compression, stored.RawSize)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: frame %d: %v", ErrCorrupt, index, err)
	}

	frame := Frame{
		Kind:        kind,
		Sequence:    stored.Sequence,
		Numbered:    stored.Numbered,
		Lost:        stored.Lost,
		Resync:      stored.Resync,
		Compression: stored.Compression,
		StoredSize:  len(stored.Data),
		Data:        data,
	}
	if r.session != nil {
		if len(stored.Digest) != len(frame.Digest) {
			return Frame{}, fmt.Errorf("%w: frame %d has no digest", ErrDigestMismatch, index)
		}
		copy(frame.Digest[:], stored.Digest)
		actual := PacketDigest(data)
		if actual != frame.Digest {
			return Frame{}, fmt.Errorf("%w: frame %d: recorded %s, computed %s", ErrDigestMismatch, index, frame.Digest, actual)
		}
		r.session.add(actual)
	}
	return frame, nil
}

func (r *Reader) verifyTrailer(trailer *trailerRecord) error {
	if trailer.Frames != r.frames {
		return fmt.Errorf("%w: trailer counts %d frames, read %d", ErrCorrupt, trailer.Frames, r.frames)
	}
	if r.session == nil {
		return nil
	}
	expected := r.session.digest()
	if !bytes.Equal(trailer.Digest, expected[:]) {
		return fmt.Errorf("%w: session digest", ErrDigestMismatch)
	}
	return nil
}
