// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !tlstream_rich

package tlstream

// PacketCount is the number of packets in each stream's pool.
const PacketCount = 32
