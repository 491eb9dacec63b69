// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tlstream

import "fmt"

// Kind identifies the trace category a stream carries. A timeline owns
// one stream of each kind.
type Kind int

const (
	// KindObjSummary carries the object summary: a snapshot of object
	// state taken when a collector attaches. Its packets are not
	// numbered because the summary is regenerated rather than replayed.
	KindObjSummary Kind = iota

	// KindObj carries object lifecycle and relationship events.
	KindObj

	// KindAux carries auxiliary events (power, frequency, page faults).
	KindAux

	// KindCount is the number of stream kinds.
	KindCount
)

// String returns the stream kind name used in logs, metrics, and
// capture files.
func (kind Kind) String() string {
	switch kind {
	case KindObjSummary:
		return "obj_summary"
	case KindObj:
		return "obj"
	case KindAux:
		return "aux"
	default:
		return fmt.Sprintf("unknown(%d)", int(kind))
	}
}

// Numbered reports whether packets of this kind carry a sequence
// number that consumers use to detect overwritten packets.
func (kind Kind) Numbered() bool {
	return kind == KindObj || kind == KindAux
}

// Valid reports whether kind is one of the defined stream kinds.
func (kind Kind) Valid() bool {
	return kind >= KindObjSummary && kind < KindCount
}

// ParseKind parses a stream kind from its String form.
func ParseKind(name string) (Kind, error) {
	for kind := KindObjSummary; kind < KindCount; kind++ {
		if kind.String() == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown stream kind: %q", name)
}
