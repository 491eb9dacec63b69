// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/timeline/lib/tracepoint"
	"github.com/bureau-foundation/timeline/timeline"
	"github.com/bureau-foundation/timeline/tlstream"
)

// syntheticEventID is the tracepoint id of producer messages. The
// stream kind is added so each stream's messages are distinguishable.
const syntheticEventID = 0x5100

// Synthetic message arguments: producer index then the producer's
// message counter.
const (
	argsProducerOffset = 0
	argsCounterOffset  = 4
	argsSize           = 12
)

// producerOptions configures the synthetic load.
type producerOptions struct {
	// Count is the number of producer goroutines.
	Count int

	// Rate is the per-producer message rate in messages per second.
	// Zero means unlimited.
	Rate float64

	// Messages is the number of messages each producer emits before
	// stopping. Zero means no limit.
	Messages uint64

	// Now supplies message timestamps. Nil means CLOCK_MONOTONIC_RAW.
	Now tracepoint.TimestampFunc
}

// runProducers runs the producers until ctx is done or each has
// emitted its messages. Cancellation is not an error.
func runProducers(ctx context.Context, tl *timeline.Timeline, options producerOptions) error {
	if options.Count <= 0 {
		return fmt.Errorf("producer count must be positive, got %d", options.Count)
	}
	if options.Rate < 0 {
		return fmt.Errorf("producer rate must not be negative, got %v", options.Rate)
	}

	kinds := tl.Kinds()
	writers := make([]*tracepoint.Writer, len(kinds))
	for i, kind := range kinds {
		writers[i] = tracepoint.NewWriter(tl.Stream(kind), options.Now)
	}

	group, groupContext := errgroup.WithContext(ctx)
	for index := range options.Count {
		group.Go(func() error {
			return produce(groupContext, uint32(index), kinds, writers, options)
		})
	}
	return group.Wait()
}

func produce(ctx context.Context, index uint32, kinds []tlstream.Kind, writers []*tracepoint.Writer, options producerOptions) error {
	limit := rate.Inf
	if options.Rate > 0 {
		limit = rate.Limit(options.Rate)
	}
	limiter := rate.NewLimiter(limit, 1)

	var args [argsSize]byte
	binary.LittleEndian.PutUint32(args[argsProducerOffset:], index)
	for counter := uint64(0); options.Messages == 0 || counter < options.Messages; counter++ {
		// Wait fails once ctx is done or its deadline is too close to
		// wait out; either way the run is ending.
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}
		slot := int(counter % uint64(len(kinds)))
		binary.LittleEndian.PutUint64(args[argsCounterOffset:], counter)
		if err := writers[slot].Emit(syntheticEventID+uint32(kinds[slot]), args[:]); err != nil {
			return fmt.Errorf("producer %d: %w", index, err)
		}
	}
	return nil
}
