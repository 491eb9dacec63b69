// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tracepoint

import "time"

var processStart = time.Now()

// monotonicFallback returns nanoseconds since process start on the
// runtime's monotonic clock.
func monotonicFallback() uint64 {
	return uint64(time.Since(processStart))
}
