// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package tracepoint

// MonotonicRaw returns a monotonic timestamp in nanoseconds. Outside
// Linux there is no raw clock; the runtime's monotonic clock is used.
func MonotonicRaw() uint64 {
	return monotonicFallback()
}
