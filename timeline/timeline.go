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

	"github.com/bureau-foundation/timeline/lib/clock"
	"github.com/bureau-foundation/timeline/tlstream"
)

// DefaultAutoflushInterval is the autoflush tick period used when
// Options leaves it zero.
const DefaultAutoflushInterval = 200 * time.Millisecond

var (
	// ErrClosed is returned by operations on a closed Timeline.
	ErrClosed = errors.New("timeline: closed")

	// ErrReaderBusy is returned by NewReader while another Reader is
	// open.
	ErrReaderBusy = errors.New("timeline: reader already open")
)

// Options configures a Timeline.
type Options struct {
	// Kinds lists the enabled stream kinds. Nil enables every kind.
	Kinds []tlstream.Kind

	// AutoflushInterval is the period at which Run ticks every stream.
	// Zero means DefaultAutoflushInterval.
	AutoflushInterval time.Duration

	// Clock supplies the autoflush ticker. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives lifecycle events. Nil discards.
	Logger *slog.Logger
}

// Timeline owns one stream per enabled kind.
type Timeline struct {
	streams  [tlstream.KindCount]*tlstream.Stream
	kinds    []tlstream.Kind
	notifier *tlstream.ChanNotifier

	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	// epoch counts Reset calls. Readers compare it to drop sequence
	// tracking from before a reset.
	epoch atomic.Uint64

	readerOpen atomic.Bool
	closed     atomic.Bool
}

// New creates a Timeline with its streams empty.
func New(options Options) (*Timeline, error) {
	if options.AutoflushInterval < 0 {
		return nil, fmt.Errorf("timeline: negative autoflush interval %v", options.AutoflushInterval)
	}
	if options.AutoflushInterval == 0 {
		options.AutoflushInterval = DefaultAutoflushInterval
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}
	kinds := options.Kinds
	if kinds == nil {
		for kind := tlstream.KindObjSummary; kind < tlstream.KindCount; kind++ {
			kinds = append(kinds, kind)
		}
	}
	if len(kinds) == 0 {
		return nil, errors.New("timeline: no stream kinds enabled")
	}

	timeline := &Timeline{
		notifier: tlstream.NewChanNotifier(),
		clock:    options.Clock,
		interval: options.AutoflushInterval,
		logger:   options.Logger,
	}
	for _, kind := range kinds {
		if !kind.Valid() {
			return nil, fmt.Errorf("timeline: invalid stream kind %v", kind)
		}
		if timeline.streams[kind] != nil {
			return nil, fmt.Errorf("timeline: stream kind %v enabled twice", kind)
		}
		timeline.streams[kind] = tlstream.New(kind, timeline.notifier)
	}
	// Kinds are kept in kind order so readers drain the summary first.
	for kind := tlstream.KindObjSummary; kind < tlstream.KindCount; kind++ {
		if timeline.streams[kind] != nil {
			timeline.kinds = append(timeline.kinds, kind)
		}
	}
	return timeline, nil
}

// Stream returns the stream of the given kind, or nil if it is not
// enabled.
func (t *Timeline) Stream(kind tlstream.Kind) *tlstream.Stream {
	if !kind.Valid() {
		return nil
	}
	return t.streams[kind]
}

// Kinds returns the enabled stream kinds in kind order.
func (t *Timeline) Kinds() []tlstream.Kind {
	return append([]tlstream.Kind(nil), t.kinds...)
}

// Ready returns the channel signaled when any stream has data for a
// reader.
func (t *Timeline) Ready() <-chan struct{} {
	return t.notifier.C()
}

// Run ticks the autoflush state machine of every stream once per
// autoflush interval until ctx is done. Run must return before Close
// is called.
func (t *Timeline) Run(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Debug("autoflush running", "interval", t.interval)
	for {
		select {
		case <-ticker.C:
			t.tick()
		case <-ctx.Done():
			return nil
		}
	}
}

// tick advances every stream's autoflush by one period.
func (t *Timeline) tick() {
	for _, kind := range t.kinds {
		stream := t.streams[kind]
		before := stream.Stats().Autoflushes
		stream.Tick()
		if stream.Stats().Autoflushes != before {
			t.logger.Debug("stream autoflushed", "stream", kind.String())
		}
	}
}

// Flush finalizes the current packet of every stream.
func (t *Timeline) Flush() error {
	if t.closed.Load() {
		return ErrClosed
	}
	for _, kind := range t.kinds {
		t.streams[kind].Flush()
	}
	return nil
}

// Reset discards the contents of every stream and restarts their
// sequence numbers.
func (t *Timeline) Reset() error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.epoch.Add(1)
	for _, kind := range t.kinds {
		t.streams[kind].Reset()
	}
	t.logger.Info("timeline reset", "epoch", t.epoch.Load())
	return nil
}

// Close terminates every stream. Later emits fail with
// tlstream.ErrTerminated. Close is idempotent. Run and any Reader must
// have stopped first.
func (t *Timeline) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, kind := range t.kinds {
		t.streams[kind].Term()
	}
	t.logger.Info("timeline closed")
	return nil
}
