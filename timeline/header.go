// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/timeline/tlstream"
)

const (
	// HeaderSize is the size of the wire packet header.
	HeaderSize = 8

	// SequenceSize is the size of the sequence number that follows the
	// header in numbered packets.
	SequenceSize = 4

	// MaxPacketSize is the largest wire packet: header, sequence
	// number, and a full stream packet.
	MaxPacketSize = HeaderSize + SequenceSize + tlstream.PacketSize

	// maxLength is the largest value of the 24-bit length field.
	maxLength = 1<<24 - 1
)

// Family is the packet family field of the header.
type Family uint8

const (
	FamilyControl  Family = 0
	FamilyTimeline Family = 1
)

// Class is the packet class field of the header.
type Class uint8

const (
	ClassObject    Class = 0
	ClassAuxiliary Class = 1
)

// PacketType is the packet type field of the header.
type PacketType uint8

const (
	TypeHeader  PacketType = 0
	TypeBody    PacketType = 1
	TypeSummary PacketType = 2
)

// ErrShortHeader is returned by DecodeHeader for fewer than HeaderSize
// bytes.
var ErrShortHeader = errors.New("timeline: short packet header")

// Header is a decoded wire packet header.
//
// The header is two little-endian 32-bit words:
//
//	word0: family(6) << 26 | class(7) << 19 | type(3) << 16 | stream id(8)
//	word1: numbered(1) << 24 | length(24)
//
// Length counts the bytes after the header, including the sequence
// number of numbered packets.
type Header struct {
	Family   Family
	Class    Class
	Type     PacketType
	StreamID uint8
	Numbered bool
	Length   uint32
}

// HeaderFor returns the header identifying packets of kind, with
// Length left zero.
func HeaderFor(kind tlstream.Kind) Header {
	header := Header{Family: FamilyTimeline, Numbered: kind.Numbered()}
	switch kind {
	case tlstream.KindObjSummary:
		header.Class, header.Type = ClassObject, TypeSummary
	case tlstream.KindObj:
		header.Class, header.Type = ClassObject, TypeBody
	case tlstream.KindAux:
		header.Class, header.Type = ClassAuxiliary, TypeBody
	default:
		panic(fmt.Sprintf("timeline: no header for stream kind %v", kind))
	}
	return header
}

// Kind maps the header back to a stream kind. The second result is
// false for headers no stream produces.
func (h Header) Kind() (tlstream.Kind, bool) {
	if h.Family != FamilyTimeline {
		return 0, false
	}
	switch {
	case h.Class == ClassObject && h.Type == TypeSummary && !h.Numbered:
		return tlstream.KindObjSummary, true
	case h.Class == ClassObject && h.Type == TypeBody && h.Numbered:
		return tlstream.KindObj, true
	case h.Class == ClassAuxiliary && h.Type == TypeBody && h.Numbered:
		return tlstream.KindAux, true
	}
	return 0, false
}

// Encode writes the header into the first HeaderSize bytes of dst.
func (h Header) Encode(dst []byte) {
	word0 := uint32(h.Family&0x3f)<<26 |
		uint32(h.Class&0x7f)<<19 |
		uint32(h.Type&0x7)<<16 |
		uint32(h.StreamID)
	word1 := h.Length & maxLength
	if h.Numbered {
		word1 |= 1 << 24
	}
	binary.LittleEndian.PutUint32(dst[0:4], word0)
	binary.LittleEndian.PutUint32(dst[4:8], word1)
}

// DecodeHeader parses a header from the start of src.
func DecodeHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(src))
	}
	word0 := binary.LittleEndian.Uint32(src[0:4])
	word1 := binary.LittleEndian.Uint32(src[4:8])
	return Header{
		Family:   Family(word0 >> 26 & 0x3f),
		Class:    Class(word0 >> 19 & 0x7f),
		Type:     PacketType(word0 >> 16 & 0x7),
		StreamID: uint8(word0),
		Numbered: word1>>24&1 == 1,
		Length:   word1 & maxLength,
	}, nil
}

// WireSize returns the size of the wire packet carrying a stream packet
// of kind with payloadSize message bytes.
func WireSize(kind tlstream.Kind, payloadSize int) int {
	size := HeaderSize + payloadSize
	if kind.Numbered() {
		size += SequenceSize
	}
	return size
}

// AppendPacket appends the wire form of packet, read from a stream of
// kind, to dst.
func AppendPacket(dst []byte, kind tlstream.Kind, packet tlstream.Packet) []byte {
	header := HeaderFor(kind)
	header.Length = uint32(len(packet.Payload))
	if header.Numbered {
		header.Length += SequenceSize
	}
	var prefix [HeaderSize + SequenceSize]byte
	header.Encode(prefix[:])
	size := HeaderSize
	if header.Numbered {
		binary.LittleEndian.PutUint32(prefix[HeaderSize:], uint32(packet.Seq))
		size += SequenceSize
	}
	dst = append(dst, prefix[:size]...)
	return append(dst, packet.Payload...)
}

// WirePacket is one packet split out of a byte stream produced by a
// Reader.
type WirePacket struct {
	Header Header
	Kind   tlstream.Kind

	// Sequence is the 32-bit sequence number of numbered packets.
	Sequence uint32

	// Body aliases the message bytes in the buffer passed to
	// SplitPackets.
	Body []byte
}

// SplitPackets splits data into wire packets. The data must consist of
// whole packets, as returned by Reader.Read.
func SplitPackets(data []byte) ([]WirePacket, error) {
	var packets []WirePacket
	for offset := 0; offset < len(data); {
		header, err := DecodeHeader(data[offset:])
		if err != nil {
			return packets, err
		}
		kind, ok := header.Kind()
		if !ok {
			return packets, fmt.Errorf("timeline: unknown packet header %+v at offset %d", header, offset)
		}
		start := offset + HeaderSize
		end := start + int(header.Length)
		if end > len(data) || (header.Numbered && header.Length < SequenceSize) {
			return packets, fmt.Errorf("timeline: packet at offset %d overruns data", offset)
		}
		packet := WirePacket{Header: header, Kind: kind, Body: data[start:end]}
		if header.Numbered {
			packet.Sequence = binary.LittleEndian.Uint32(data[start:])
			packet.Body = data[start+SequenceSize : end]
		}
		packets = append(packets, packet)
		offset = end
	}
	return packets, nil
}
