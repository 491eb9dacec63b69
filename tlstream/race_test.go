// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build race

package tlstream

// raceEnabled reports whether the test binary was built with -race.
// Reads that overlap a concurrent Reset or a lapping producer copy
// bytes that are being rewritten; the copy is discarded, but the race
// detector still flags it.
const raceEnabled = true
