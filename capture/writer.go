// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/timeline/lib/codec"
	"github.com/bureau-foundation/timeline/timeline"
	"github.com/bureau-foundation/timeline/tlstream"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Streams lists the stream kinds being captured.
	Streams []tlstream.Kind

	// Compression is applied to each frame where it saves space.
	Compression Compression

	// Digests enables per-frame and session digests.
	Digests bool

	// StartedAt is recorded in the header.
	StartedAt time.Time
}

// WriterStats summarizes what a Writer has written.
type WriterStats struct {
	Frames    uint64
	RawBytes  uint64
	DataBytes uint64
	Lost      uint64
}

// Writer appends frames to a capture file. It is not safe for
// concurrent use.
type Writer struct {
	encoder *codec.Encoder
	options WriterOptions
	session *sessionHasher

	expected [tlstream.KindCount]uint32
	seen     [tlstream.KindCount]bool

	stats  WriterStats
	closed bool
}

// NewWriter writes a capture header to w and returns a Writer for the
// frames that follow.
func NewWriter(w io.Writer, options WriterOptions) (*Writer, error) {
	if len(options.Streams) == 0 {
		return nil, errors.New("capture: no streams to capture")
	}
	names := make([]string, 0, len(options.Streams))
	for _, kind := range options.Streams {
		if !kind.Valid() {
			return nil, fmt.Errorf("capture: invalid stream kind %v", kind)
		}
		names = append(names, kind.String())
	}
	if _, err := ParseCompression(options.Compression.String()); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	writer := &Writer{
		encoder: codec.NewEncoder(w),
		options: options,
	}
	if options.Digests {
		writer.session = newSessionHasher()
	}

	header := &Header{
		Magic:       Magic,
		Version:     FormatVersion,
		StartedAt:   options.StartedAt.UnixNano(),
		PacketSize:  tlstream.PacketSize,
		PacketCount: tlstream.PacketCount,
		Streams:     names,
		Compression: options.Compression.String(),
		Digests:     options.Digests,
	}
	if err := writer.encoder.Encode(record{Type: recordHeader, Header: header}); err != nil {
		return nil, fmt.Errorf("writing capture header: %w", err)
	}
	return writer, nil
}

// WritePacket appends one wire packet as a frame. For numbered streams
// the writer compares the packet's sequence number with the previous
// one of the same stream and records the gap as Lost; a backwards jump
// marks the frame Resync.
func (w *Writer) WritePacket(packet timeline.WirePacket) error {
	if w.closed {
		return errors.New("capture: write to closed writer")
	}

	frame := frameRecord{
		Kind:     packet.Kind.String(),
		Numbered: packet.Header.Numbered,
		RawSize:  len(packet.Body),
	}
	if frame.Numbered {
		frame.Sequence = packet.Sequence
		if w.seen[packet.Kind] && packet.Sequence != w.expected[packet.Kind] {
			gap := packet.Sequence - w.expected[packet.Kind]
			if gap < 1<<31 {
				frame.Lost = uint64(gap)
			} else {
				frame.Resync = true
			}
		}
		w.expected[packet.Kind] = packet.Sequence + 1
		w.seen[packet.Kind] = true
	}

	data, applied, err := compress(packet.Body, w.options.Compression)
	if err != nil {
		return fmt.Errorf("compressing %s frame: %w", frame.Kind, err)
	}
	frame.Compression = applied
	frame.Data = data

	if w.session != nil {
		digest := PacketDigest(packet.Body)
		frame.Digest = digest[:]
		w.session.add(digest)
	}

	if err := w.encoder.Encode(record{Type: recordFrame, Frame: &frame}); err != nil {
		return fmt.Errorf("writing %s frame: %w", frame.Kind, err)
	}
	w.stats.Frames++
	w.stats.RawBytes += uint64(frame.RawSize)
	w.stats.DataBytes += uint64(len(frame.Data))
	w.stats.Lost += frame.Lost
	return nil
}

// WriteWire splits data, as returned by timeline.Reader.Read, into
// wire packets and writes each as a frame.
func (w *Writer) WriteWire(data []byte) error {
	packets, err := timeline.SplitPackets(data)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	for _, packet := range packets {
		if err := w.WritePacket(packet); err != nil {
			return err
		}
	}
	return nil
}

// Stats returns what has been written so far.
func (w *Writer) Stats() WriterStats {
	return w.stats
}

// Close writes the trailer. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	trailer := &trailerRecord{Frames: w.stats.Frames}
	if w.session != nil {
		digest := w.session.digest()
		trailer.Digest = digest[:]
	}
	if err := w.encoder.Encode(record{Type: recordTrailer, Trailer: trailer}); err != nil {
		return fmt.Errorf("writing capture trailer: %w", err)
	}
	return nil
}
