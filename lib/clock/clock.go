// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for everything in the timeline that waits:
// the autoflush ticker, capture deadlines, and wall-clock stamps in
// capture headers. Production code uses Real(); tests use Fake() and
// advance time explicitly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0, the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks on its C channel
	// every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. Call Stop when done.
//
// C has capacity 1, matching time.Ticker: a receiver that falls behind
// loses ticks rather than queueing them. The autoflush loop relies on
// this, since a late batch of ticks must not count as several idle
// periods at once.
type Ticker struct {
	// C delivers ticks. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns off the ticker. No ticks are sent after Stop returns.
// Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset changes the tick interval and restarts the cycle: the next tick
// arrives d after the call.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }
