// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The timeline's autoflush controller is driven by an external
// periodic tick; making that tick come from a Clock lets tests drive
// the controller one period at a time instead of sleeping:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	tl := timeline.New(timeline.Options{Clock: c, AutoflushInterval: time.Second})
//	go tl.Run(ctx)
//	c.WaitForTimers(1)     // the autoflush ticker is registered
//	c.Advance(time.Second) // exactly one tick
//
// # FakeClock synchronization
//
// A goroutine calling After or NewTicker on a FakeClock registers a
// pending waiter. WaitForTimers blocks until a given number of waiters
// exist, closing the race between a goroutine registering its ticker
// and the test advancing time.
package clock
