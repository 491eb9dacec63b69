// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/timeline/tlstream"
)

// MinReadSize is the smallest buffer Read accepts: one wire packet of
// the largest size.
const MinReadSize = MaxPacketSize

// ErrShortBuffer is returned by Read when the buffer cannot hold the
// largest wire packet.
var ErrShortBuffer = errors.New("timeline: read buffer smaller than MinReadSize")

// lossLogInterval bounds how often a Reader logs packet loss. Losses
// between log lines are still counted.
const lossLogInterval = 5 * time.Second

// Reader collects packets from every stream of a Timeline.
type Reader struct {
	timeline *Timeline
	logger   *slog.Logger
	limiter  *rate.Limiter

	// scratch receives stream packets before they are framed.
	scratch []byte

	// pending holds a framed packet that did not fit the caller's
	// buffer. It is returned first by the next Read.
	pending []byte

	epoch uint64

	// expected is the next sequence number per numbered stream, valid
	// when seen is set.
	expected [tlstream.KindCount]uint32
	seen     [tlstream.KindCount]bool

	packets [tlstream.KindCount]atomic.Uint64
	bytes   [tlstream.KindCount]atomic.Uint64
	lost    [tlstream.KindCount]atomic.Uint64

	closed bool
}

// ReaderStats is a snapshot of what a Reader has collected from one
// stream.
type ReaderStats struct {
	Kind    tlstream.Kind
	Packets uint64
	Bytes   uint64

	// Lost counts packets overwritten before the reader reached them.
	Lost uint64
}

// NewReader opens the Timeline's single reader. Loss warnings go to
// logger, at most one per few seconds; nil discards them.
func (t *Timeline) NewReader(logger *slog.Logger) (*Reader, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if !t.readerOpen.CompareAndSwap(false, true) {
		return nil, ErrReaderBusy
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reader{
		timeline: t,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(lossLogInterval), 1),
		scratch:  make([]byte, 0, tlstream.PacketSize),
		pending:  make([]byte, 0, MaxPacketSize),
		epoch:    t.epoch.Load(),
	}, nil
}

// Close releases the reader so another can be opened. Packets held
// back for the next Read are dropped.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pending = r.pending[:0]
	r.timeline.readerOpen.Store(false)
	return nil
}

// Read fills p with whole wire packets, blocking until at least one is
// available or ctx is done. Packets are never split: a packet that
// does not fit the remaining space is held for the next call.
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) < MinReadSize {
		return 0, fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(p), MinReadSize)
	}
	for {
		if n := r.fill(p); n > 0 {
			return n, nil
		}
		if r.timeline.closed.Load() {
			return 0, ErrClosed
		}
		select {
		case <-r.timeline.Ready():
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// TryRead is Read without blocking: it returns 0 when no packet is
// waiting.
func (r *Reader) TryRead(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if len(p) < MinReadSize {
		return 0, fmt.Errorf("%w: %d < %d", ErrShortBuffer, len(p), MinReadSize)
	}
	return r.fill(p), nil
}

// fill copies as many waiting packets into p as fit, streams in kind
// order.
func (r *Reader) fill(p []byte) int {
	n := copy(p, r.pending)
	r.pending = r.pending[:0]

	if epoch := r.timeline.epoch.Load(); epoch != r.epoch {
		r.epoch = epoch
		r.seen = [tlstream.KindCount]bool{}
	}

	for _, kind := range r.timeline.kinds {
		stream := r.timeline.streams[kind]
		for {
			packet, ok := stream.ReadPacket(r.scratch)
			if !ok {
				break
			}
			r.scratch = packet.Payload[:0]
			r.account(kind, packet)

			if WireSize(kind, len(packet.Payload)) > len(p)-n {
				r.pending = AppendPacket(r.pending[:0], kind, packet)
				return n
			}
			n += len(AppendPacket(p[n:n], kind, packet))
		}
	}
	return n
}

// account updates counters and sequence tracking for a packet.
func (r *Reader) account(kind tlstream.Kind, packet tlstream.Packet) {
	r.packets[kind].Add(1)
	r.bytes[kind].Add(uint64(len(packet.Payload)))

	lost := packet.Lost
	if packet.Numbered {
		sequence := uint32(packet.Seq)
		if r.seen[kind] && sequence != r.expected[kind] {
			// Distance on the 32-bit wire sequence, modulo wraparound. A
			// backwards jump is a reset the epoch check did not catch
			// and only resynchronizes.
			gap := sequence - r.expected[kind]
			if gap < 1<<31 && uint64(gap) > lost {
				lost = uint64(gap)
			}
		}
		r.expected[kind] = sequence + 1
		r.seen[kind] = true
	}
	if lost == 0 {
		return
	}
	total := r.lost[kind].Add(lost)
	if r.limiter.Allow() {
		r.logger.Warn("timeline packets lost",
			"stream", kind.String(),
			"lost", lost,
			"total_lost", total,
			"sequence", packet.Seq,
		)
	}
}

// Stats returns per-stream counters for the enabled streams. Safe to
// call concurrently with Read.
func (r *Reader) Stats() []ReaderStats {
	stats := make([]ReaderStats, 0, len(r.timeline.kinds))
	for _, kind := range r.timeline.kinds {
		stats = append(stats, ReaderStats{
			Kind:    kind,
			Packets: r.packets[kind].Load(),
			Bytes:   r.bytes[kind].Load(),
			Lost:    r.lost[kind].Load(),
		})
	}
	return stats
}
