// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package tracepoint

import "golang.org/x/sys/unix"

// MonotonicRaw returns CLOCK_MONOTONIC_RAW in nanoseconds: the
// hardware clock without NTP slewing, so timestamps from different
// streams are comparable.
func MonotonicRaw() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC_RAW, &ts); err != nil {
		return monotonicFallback()
	}
	return uint64(ts.Nano())
}
