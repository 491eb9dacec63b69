// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tlstream

import (
	"iter"
	"runtime"
)

// Packet is one finalized packet as seen by the consumer.
type Packet struct {
	// Seq is the packet's sequence number: its write index when it was
	// finalized. Sequence numbers restart at zero on Reset. Consumers
	// of numbered streams compare it with the previous packet's to
	// detect overwritten packets.
	Seq uint64

	// Numbered reports whether the stream's packets are numbered. For
	// unnumbered streams Seq is still filled in but is not part of the
	// stream's wire format.
	Numbered bool

	// Lost is the number of packets immediately before this one that
	// were overwritten before the consumer reached them.
	Lost uint64

	// Payload holds the packet's message bytes.
	Payload []byte
}

// ReadPacket copies the oldest unread finalized packet into dst (grown
// if needed) and consumes it. It returns false when no finalized packet
// is waiting. ReadPacket never takes the stream lock; only one
// goroutine may read from a stream at a time.
func (s *Stream) ReadPacket(dst []byte) (Packet, bool) {
	s.mustBeLive("ReadPacket")
	return s.readPacket(dst, ^uint64(0))
}

// Packets returns an iterator over the finalized packets that are
// waiting when iteration starts, oldest first. Each packet is consumed
// as it is yielded and its payload is a fresh copy. Packets finalized
// during iteration are left for the next call.
func (s *Stream) Packets() iter.Seq[Packet] {
	return func(yield func(Packet) bool) {
		s.mustBeLive("Packets")
		limit := s.writeIndex.Load()
		for {
			packet, ok := s.readPacket(nil, limit)
			if !ok || !yield(packet) {
				return
			}
		}
	}
}

// readPacket reads the oldest packet with index below limit. Reads race
// with producers that have lapped the consumer: such a producer
// recycles the buffer of the oldest unread packet and may be writing
// its bytes while they are copied. The holds check before and after
// the copy detects this and the copy is discarded, but the race
// detector reports the overlapping access. Reads also race with Reset;
// every cursor move is checked against the reset generation and
// undone if a Reset intervened.
func (s *Stream) readPacket(dst []byte, limit uint64) (Packet, bool) {
	var lost uint64
	generation := s.resets.Load()
	for {
		resets := s.resets.Load()
		if resets&1 != 0 {
			runtime.Gosched()
			continue
		}
		if resets != generation {
			// Anything skipped so far belonged to the discarded stream.
			generation = resets
			lost = 0
		}
		readIndex := s.readIndex.Load()
		writeIndex := min(s.writeIndex.Load(), limit)
		if readIndex >= writeIndex {
			if lost > 0 {
				s.carryLost(lost, generation)
			}
			return Packet{}, false
		}

		// More than a full pool behind: everything older than the last
		// PacketCount packets has been recycled.
		if writeIndex-readIndex > PacketCount {
			oldest := writeIndex - PacketCount
			if s.advance(readIndex, oldest, generation) {
				lost += oldest - readIndex
			}
			continue
		}

		current := &s.packets[readIndex%PacketCount]
		if current.holds.Load() != readIndex+1 {
			if s.advance(readIndex, readIndex+1, generation) {
				lost++
			}
			continue
		}
		used := current.used.Load()
		dst = append(dst[:0], current.data[:used]...)
		if current.holds.Load() != readIndex+1 {
			if s.advance(readIndex, readIndex+1, generation) {
				lost++
			}
			continue
		}

		// A failed advance means Reset ran during the copy; what was
		// copied belongs to the discarded stream.
		if !s.advance(readIndex, readIndex+1, generation) {
			continue
		}
		return Packet{
			Seq:      readIndex,
			Numbered: s.numbered,
			Lost:     lost + s.takeLost(generation),
			Payload:  dst,
		}, true
	}
}

// advance moves the read cursor from one index to another and reports
// whether it did so within reset generation. Only Reset moves the
// cursor besides the consumer, and it zeroes it, so a swap from zero
// can succeed on a cursor Reset just wrote. Such a swap is undone.
func (s *Stream) advance(from, to, generation uint64) bool {
	if !s.readIndex.CompareAndSwap(from, to) {
		return false
	}
	if s.resets.Load() == generation {
		return true
	}
	s.readIndex.CompareAndSwap(to, from)
	return false
}

func (s *Stream) carryLost(lost, generation uint64) {
	if s.carriedResets != generation {
		s.carriedLost = 0
		s.carriedResets = generation
	}
	s.carriedLost += lost
}

func (s *Stream) takeLost(generation uint64) uint64 {
	lost := s.carriedLost
	s.carriedLost = 0
	if s.carriedResets != generation {
		return 0
	}
	return lost
}
