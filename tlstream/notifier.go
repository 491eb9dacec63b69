// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tlstream

// Notifier is signaled when a stream has packets ready for collection.
// Signal is called by producers after they drop the stream lock, but
// possibly from contexts that must not wait, so implementations must
// return promptly without blocking.
type Notifier interface {
	Signal()
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func()

// Signal calls f.
func (f NotifierFunc) Signal() { f() }

type nopNotifier struct{}

func (nopNotifier) Signal() {}

// ChanNotifier is a Notifier backed by a channel of capacity 1. Signals
// coalesce: any number of Signal calls between two receives produce a
// single wakeup. A consumer that drains after every receive never
// misses data, because a Signal racing with the drain leaves the
// channel full.
type ChanNotifier struct {
	ready chan struct{}
}

// NewChanNotifier creates a ChanNotifier.
func NewChanNotifier() *ChanNotifier {
	return &ChanNotifier{ready: make(chan struct{}, 1)}
}

// Signal marks data as ready without blocking.
func (n *ChanNotifier) Signal() {
	select {
	case n.ready <- struct{}{}:
	default:
	}
}

// C returns the channel that receives a value after Signal.
func (n *ChanNotifier) C() <-chan struct{} {
	return n.ready
}
