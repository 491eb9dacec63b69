// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tlstream

import (
	"runtime"
	"sync/atomic"
)

// activeSpins is the number of failed compare-and-swap attempts before
// a waiting producer yields its processor.
const activeSpins = 64

// orderLock is the stream's message order lock. It never parks the
// holder: lock spins until the holder releases, yielding the processor
// between bursts so a descheduled holder can run. The holder's critical
// section is expected to be a few hundred nanoseconds.
type orderLock struct {
	state atomic.Bool
}

func (l *orderLock) lock() {
	for spins := 0; !l.state.CompareAndSwap(false, true); spins++ {
		if spins >= activeSpins {
			runtime.Gosched()
			spins = 0
		}
	}
}

func (l *orderLock) tryLock() bool {
	return l.state.CompareAndSwap(false, true)
}

func (l *orderLock) unlock() {
	if !l.state.CompareAndSwap(true, false) {
		panic("tlstream: unlock of unlocked stream")
	}
}

func (l *orderLock) held() bool {
	return l.state.Load()
}
