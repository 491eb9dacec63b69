// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tlstream

import (
	"errors"
	"sync/atomic"
)

// PacketSize is the capacity of one packet in bytes. A single message
// can be at most this large.
const PacketSize = 4096

// Autoflush counter states. The counter is autoflushIdle when the
// stream holds no unflushed data, autoflushFresh after every Release,
// and counts consecutive idle ticks above that.
const (
	autoflushIdle  int32 = -1
	autoflushFresh int32 = 0

	// autoflushTicks is the number of consecutive idle ticks after
	// which pending data is flushed. One tick is not enough: a bursty
	// producer may still be filling the packet.
	autoflushTicks int32 = 2
)

var (
	// ErrMessageTooLarge is returned by Acquire when the requested size
	// exceeds PacketSize. Nothing is reserved.
	ErrMessageTooLarge = errors.New("tlstream: message larger than packet size")

	// ErrInvalidSize is returned by Acquire for a non-positive size.
	ErrInvalidSize = errors.New("tlstream: message size must be positive")

	// ErrTerminated is returned by Acquire on a stream after Term.
	ErrTerminated = errors.New("tlstream: stream terminated")
)

// packet is one buffer of the pool.
type packet struct {
	// used is the number of bytes of data occupied. Written by
	// producers under the stream lock, read by the consumer without it.
	used atomic.Uint32

	// holds is the write index of the packet whose bytes are in data,
	// plus one. Zero means the buffer has never been claimed since the
	// stream was created or reset. The consumer compares it before and
	// after copying to detect a producer recycling the buffer under it.
	holds atomic.Uint64

	data [PacketSize]byte
}

// Token is returned by Acquire and must be passed to the matching
// Release. It carries no resources; a zero Token is invalid.
type Token struct {
	stream     *Stream
	generation uint64
	finalized  bool
}

// Stream is one timeline stream. Create it with New. All methods are
// safe for concurrent use by any number of producers, one tick source,
// and one consumer.
type Stream struct {
	lock orderLock

	kind     Kind
	numbered bool
	notifier Notifier

	packets [PacketCount]packet

	// writeIndex is the index of the current packet: the number of
	// packets finalized since the last reset. Advanced only under lock.
	writeIndex atomic.Uint64

	// readIndex is the index of the next packet the consumer will
	// read. Advanced only by the consumer, zeroed by Reset.
	readIndex atomic.Uint64

	// generation counts lock acquisitions by Acquire. It lets Release
	// reject tokens from earlier critical sections.
	generation atomic.Uint64

	autoflush  atomic.Int32
	terminated atomic.Bool

	// resets is the reset generation: odd while a Reset is zeroing the
	// stream, bumped again when it is done. The consumer compares it
	// before and after moving readIndex to detect a swap that landed on
	// a cursor Reset had just zeroed.
	resets atomic.Uint64

	// carriedLost counts packets the consumer skipped during a read
	// that then found nothing intact to return, for reporting with the
	// next packet. It belongs to the reset generation carriedResets.
	// Both are owned by the consumer.
	carriedLost   uint64
	carriedResets uint64

	bytesGenerated atomic.Uint64
	finalized      atomic.Uint64
	overwritten    atomic.Uint64
	autoflushes    atomic.Uint64
}

// New creates a stream of the given kind with every packet empty, both
// cursors at zero, and no data pending. The notifier is signaled when
// packets become ready for collection; nil means nobody is notified.
func New(kind Kind, notifier Notifier) *Stream {
	if !kind.Valid() {
		panic("tlstream: invalid stream kind " + kind.String())
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	stream := &Stream{
		kind:     kind,
		numbered: kind.Numbered(),
		notifier: notifier,
	}
	stream.autoflush.Store(autoflushIdle)
	return stream
}

// Kind returns the stream's kind.
func (s *Stream) Kind() Kind { return s.kind }

// Numbered reports whether the stream's packets carry sequence numbers.
func (s *Stream) Numbered() bool { return s.numbered }

// Term terminates the stream. Later calls to Acquire fail with
// ErrTerminated; any other use of the stream panics. Term waits for a
// producer inside its critical section to release.
func (s *Stream) Term() {
	s.mustBeLive("Term")
	s.lock.lock()
	s.terminated.Store(true)
	s.lock.unlock()
}

// Acquire locks the stream and reserves size contiguous bytes in the
// current packet. The caller writes its message into the returned
// slice, which is exactly size bytes long, and then calls Release with
// the returned token. Until Release the stream stays locked: the caller
// must not allocate, block, or touch the stream in between.
//
// A size larger than PacketSize is a caller bug; Acquire returns
// ErrMessageTooLarge without locking or reserving anything.
func (s *Stream) Acquire(size int) ([]byte, Token, error) {
	if size <= 0 {
		return nil, Token{}, ErrInvalidSize
	}
	if size > PacketSize {
		return nil, Token{}, ErrMessageTooLarge
	}
	if s.terminated.Load() {
		return nil, Token{}, ErrTerminated
	}

	s.lock.lock()
	if s.terminated.Load() {
		s.lock.unlock()
		return nil, Token{}, ErrTerminated
	}

	index := s.writeIndex.Load()
	current := s.claim(index)
	offset := int(current.used.Load())
	finalized := false
	if PacketSize-offset < size {
		index++
		s.writeIndex.Store(index)
		s.finalized.Add(1)
		current = s.claim(index)
		offset = 0
		finalized = true
	}
	current.used.Store(uint32(offset + size))
	s.bytesGenerated.Add(uint64(size))

	token := Token{
		stream:     s,
		generation: s.generation.Add(1),
		finalized:  finalized,
	}
	return current.data[offset : offset+size : offset+size], token, nil
}

// Release ends the critical section begun by the Acquire that returned
// token and marks the stream as holding unflushed data. Passing a token
// from another stream, a token already released, or a zero token
// panics.
func (s *Stream) Release(token Token) {
	if token.stream != s || !s.lock.held() || token.generation != s.generation.Load() {
		panic("tlstream: Release with a token not issued by the current Acquire")
	}
	previous := s.autoflush.Swap(autoflushFresh)
	// Invalidate the token before unlocking so a second Release with
	// the same token is caught even if no Acquire intervenes.
	s.generation.Add(1)
	s.lock.unlock()

	if token.finalized || previous == autoflushIdle {
		s.notifier.Signal()
	}
}

// Flush finalizes the current packet if it holds any data, making it
// visible to the consumer, and signals the notifier. The stream is
// marked as having no unflushed data.
func (s *Stream) Flush() {
	s.mustBeLive("Flush")
	s.lock.lock()
	s.flushLocked()
	s.lock.unlock()
	s.notifier.Signal()
}

// Tick advances the autoflush state machine by one timer period. The
// owner calls it periodically. A stream whose data has gone two ticks
// without a Release is flushed; a stream with nothing pending ignores
// the tick.
func (s *Stream) Tick() {
	s.mustBeLive("Tick")
	state := s.autoflush.Load()
	if state == autoflushIdle {
		return
	}
	// A Release racing with this tick wins: the stream is active again
	// and the tick is dropped.
	if !s.autoflush.CompareAndSwap(state, state+1) {
		return
	}
	if state+1 < autoflushTicks {
		return
	}
	s.lock.lock()
	// Re-check under the lock: a Release between the swap above and
	// here means a producer is active and the data is not stale.
	if s.autoflush.Load() < autoflushTicks {
		s.lock.unlock()
		return
	}
	s.flushLocked()
	s.autoflushes.Add(1)
	s.lock.unlock()
	s.notifier.Signal()
}

// Reset discards every packet, read or not, and restarts both cursors
// and the packet sequence at zero. Producers are excluded for the
// duration, so none observes a half-reset stream.
func (s *Stream) Reset() {
	s.mustBeLive("Reset")
	s.lock.lock()
	// The generation moves before the cursors: a reader whose swap
	// observes the zeroed read index also observes the new generation.
	s.resets.Add(1)
	for i := range s.packets {
		s.packets[i].holds.Store(0)
		s.packets[i].used.Store(0)
	}
	s.writeIndex.Store(0)
	s.readIndex.Store(0)
	s.autoflush.Store(autoflushIdle)
	s.resets.Add(1)
	s.lock.unlock()
}

// flushLocked finalizes the current packet if it holds data and marks
// the stream idle. The caller holds the lock.
func (s *Stream) flushLocked() {
	index := s.writeIndex.Load()
	current := &s.packets[index%PacketCount]
	if current.holds.Load() == index+1 && current.used.Load() > 0 {
		s.writeIndex.Store(index + 1)
		s.finalized.Add(1)
	}
	s.autoflush.Store(autoflushIdle)
}

// claim returns the buffer for packet index, recycling it if it still
// holds an older packet. Recycling a packet the consumer has not read
// is an overwrite. The caller holds the lock.
func (s *Stream) claim(index uint64) *packet {
	current := &s.packets[index%PacketCount]
	holds := current.holds.Load()
	if holds == index+1 {
		return current
	}
	if holds != 0 && s.readIndex.Load() < holds {
		s.overwritten.Add(1)
	}
	current.holds.Store(index + 1)
	current.used.Store(0)
	return current
}

func (s *Stream) mustBeLive(operation string) {
	if s.terminated.Load() {
		panic("tlstream: " + operation + " on terminated stream")
	}
}

// Stats is a point-in-time snapshot of a stream's counters.
type Stats struct {
	Kind Kind

	// WriteIndex and ReadIndex are the current cursor values. Both
	// restart at zero on Reset.
	WriteIndex uint64
	ReadIndex  uint64

	// BytesGenerated is the total size of all messages reserved.
	BytesGenerated uint64

	// Finalized counts packets made visible, by filling or flushing.
	Finalized uint64

	// Overwritten counts packets recycled before the consumer read
	// them.
	Overwritten uint64

	// Autoflushes counts flushes triggered by Tick.
	Autoflushes uint64
}

// Pending returns the number of finalized packets not yet read. It can
// exceed PacketCount when the consumer has fallen behind.
func (stats Stats) Pending() uint64 {
	if stats.WriteIndex < stats.ReadIndex {
		return 0
	}
	return stats.WriteIndex - stats.ReadIndex
}

// Stats returns a snapshot of the stream's counters. The fields are
// read individually without the lock, so a snapshot taken under load
// may mix values from adjacent moments.
func (s *Stream) Stats() Stats {
	return Stats{
		Kind:           s.kind,
		WriteIndex:     s.writeIndex.Load(),
		ReadIndex:      s.readIndex.Load(),
		BytesGenerated: s.bytesGenerated.Load(),
		Finalized:      s.finalized.Load(),
		Overwritten:    s.overwritten.Load(),
		Autoflushes:    s.autoflushes.Load(),
	}
}
