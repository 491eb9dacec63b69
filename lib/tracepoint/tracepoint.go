// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracepoint

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/timeline/lib/clock"
	"github.com/bureau-foundation/timeline/tlstream"
)

// HeaderSize is the size of the fixed message header.
const HeaderSize = 16

// MaxArgs is the largest argument block that fits in one packet.
const MaxArgs = tlstream.PacketSize - HeaderSize

// ErrTruncated is returned by Decode when a packet body ends inside a
// message.
var ErrTruncated = errors.New("tracepoint: truncated message")

// TimestampFunc returns the current timestamp in nanoseconds. It is
// called inside the stream's critical section and must not block or
// allocate.
type TimestampFunc func() uint64

// FromClock returns a TimestampFunc reading c. Tests use it with a
// fake clock for deterministic timestamps.
func FromClock(c clock.Clock) TimestampFunc {
	return func() uint64 { return uint64(c.Now().UnixNano()) }
}

// Writer emits messages into one stream.
type Writer struct {
	stream *tlstream.Stream
	now    TimestampFunc
}

// NewWriter returns a Writer for stream. A nil now uses MonotonicRaw.
func NewWriter(stream *tlstream.Stream, now TimestampFunc) *Writer {
	if now == nil {
		now = MonotonicRaw
	}
	return &Writer{stream: stream, now: now}
}

// Emit writes one message with the given id and arguments. Arguments
// larger than MaxArgs are rejected with tlstream.ErrMessageTooLarge.
func (w *Writer) Emit(id uint32, args []byte) error {
	buffer, token, err := w.stream.Acquire(HeaderSize + len(args))
	if err != nil {
		return fmt.Errorf("emitting tracepoint %d: %w", id, err)
	}
	binary.LittleEndian.PutUint32(buffer[0:4], id)
	binary.LittleEndian.PutUint64(buffer[4:12], w.now())
	binary.LittleEndian.PutUint32(buffer[12:16], uint32(len(args)))
	copy(buffer[HeaderSize:], args)
	w.stream.Release(token)
	return nil
}

// Message is one decoded message.
type Message struct {
	ID        uint32
	Timestamp uint64

	// Args aliases the packet body passed to Decode.
	Args []byte
}

// Decode splits a packet body into its messages, in order.
func Decode(body []byte) ([]Message, error) {
	var messages []Message
	for offset := 0; offset < len(body); {
		if len(body)-offset < HeaderSize {
			return messages, fmt.Errorf("%w: %d header bytes at offset %d", ErrTruncated, len(body)-offset, offset)
		}
		header := body[offset : offset+HeaderSize]
		argsLength := int(binary.LittleEndian.Uint32(header[12:16]))
		end := offset + HeaderSize + argsLength
		if argsLength > MaxArgs || end > len(body) {
			return messages, fmt.Errorf("%w: message at offset %d claims %d argument bytes", ErrTruncated, offset, argsLength)
		}
		messages = append(messages, Message{
			ID:        binary.LittleEndian.Uint32(header[0:4]),
			Timestamp: binary.LittleEndian.Uint64(header[4:12]),
			Args:      body[offset+HeaderSize : end],
		})
		offset = end
	}
	return messages, nil
}
