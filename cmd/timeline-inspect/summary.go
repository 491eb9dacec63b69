// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/timeline/capture"
	"github.com/bureau-foundation/timeline/lib/tracepoint"
	"github.com/bureau-foundation/timeline/tlstream"
)

// Summary describes a whole capture file.
type Summary struct {
	StartedAt   time.Time `json:"started_at"`
	Version     int       `json:"version"`
	PacketSize  int       `json:"packet_size"`
	PacketCount int       `json:"packet_count"`
	Compression string    `json:"compression"`
	Digests     bool      `json:"digests"`

	// Complete reports whether the trailer was present and verified.
	Complete bool `json:"complete"`

	Frames  uint64          `json:"frames"`
	Streams []StreamSummary `json:"streams"`

	// Problems lists verification failures, in the order found.
	Problems []string `json:"problems,omitempty"`
}

// StreamSummary describes the frames of one stream kind.
type StreamSummary struct {
	Stream      string `json:"stream"`
	Numbered    bool   `json:"numbered"`
	Packets     uint64 `json:"packets"`
	Bytes       uint64 `json:"bytes"`
	StoredBytes uint64 `json:"stored_bytes"`
	Messages    uint64 `json:"messages"`

	// Gaps counts discontinuities in the sequence; Lost sums their
	// sizes.
	Gaps uint64 `json:"gaps"`
	Lost uint64 `json:"lost"`

	// Resyncs counts restarts of the sequence.
	Resyncs uint64 `json:"resyncs"`

	FirstTimestamp uint64 `json:"first_timestamp,omitempty"`
	LastTimestamp  uint64 `json:"last_timestamp,omitempty"`
}

// FrameLine is one entry of the --frames listing.
type FrameLine struct {
	Index       uint64 `json:"index"`
	Stream      string `json:"stream"`
	Sequence    uint32 `json:"sequence"`
	Numbered    bool   `json:"numbered"`
	Lost        uint64 `json:"lost,omitempty"`
	Resync      bool   `json:"resync,omitempty"`
	Compression string `json:"compression"`
	Bytes       int    `json:"bytes"`
	StoredBytes int    `json:"stored_bytes"`
	Messages    int    `json:"messages"`
}

// OK reports whether verification found no problems.
func (s *Summary) OK() bool {
	return s.Complete && len(s.Problems) == 0
}

// streamState is the running continuity state of one stream.
type streamState struct {
	summary StreamSummary

	seen          bool
	nextSequence  uint32
	lastTimestamp uint64
}

// inspect reads a capture from r. Each frame is passed to onFrame when
// it is non-nil. Verification problems are collected in the summary;
// only an unreadable header is returned as an error.
func inspect(r io.Reader, onFrame func(FrameLine)) (*Summary, error) {
	reader, err := capture.NewReader(r)
	if err != nil {
		return nil, err
	}
	header := reader.Header()
	summary := &Summary{
		StartedAt:   time.Unix(0, header.StartedAt).UTC(),
		Version:     header.Version,
		PacketSize:  header.PacketSize,
		PacketCount: header.PacketCount,
		Compression: header.Compression,
		Digests:     header.Digests,
	}

	var states [tlstream.KindCount]*streamState
	for _, name := range header.Streams {
		kind, err := tlstream.ParseKind(name)
		if err != nil {
			summary.Problems = append(summary.Problems, fmt.Sprintf("header: %v", err))
			continue
		}
		states[kind] = &streamState{summary: StreamSummary{Stream: kind.String(), Numbered: kind.Numbered()}}
	}

	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Problems = append(summary.Problems, err.Error())
			break
		}
		index := summary.Frames
		summary.Frames++

		state := states[frame.Kind]
		if state == nil {
			summary.Problems = append(summary.Problems,
				fmt.Sprintf("frame %d: stream %v is not listed in the header", index, frame.Kind))
			state = &streamState{summary: StreamSummary{Stream: frame.Kind.String(), Numbered: frame.Kind.Numbered()}}
			states[frame.Kind] = state
		}
		messages := state.add(index, frame, &summary.Problems)
		if onFrame != nil {
			onFrame(FrameLine{
				Index:       index,
				Stream:      frame.Kind.String(),
				Sequence:    frame.Sequence,
				Numbered:    frame.Numbered,
				Lost:        frame.Lost,
				Resync:      frame.Resync,
				Compression: frame.Compression.String(),
				Bytes:       len(frame.Data),
				StoredBytes: frame.StoredSize,
				Messages:    messages,
			})
		}
	}
	summary.Complete = reader.Complete()
	if !summary.Complete && len(summary.Problems) == 0 {
		summary.Problems = append(summary.Problems, "capture has no trailer: the writer did not finish")
	}

	for kind := tlstream.KindObjSummary; kind < tlstream.KindCount; kind++ {
		if states[kind] != nil {
			summary.Streams = append(summary.Streams, states[kind].summary)
		}
	}
	return summary, nil
}

// add accounts one frame and returns its message count.
func (s *streamState) add(index uint64, frame capture.Frame, problems *[]string) int {
	s.summary.Packets++
	s.summary.Bytes += uint64(len(frame.Data))
	s.summary.StoredBytes += uint64(frame.StoredSize)

	if frame.Numbered {
		s.checkSequence(index, frame, problems)
	}
	if frame.Resync {
		s.summary.Resyncs++
		s.lastTimestamp = 0
	}

	messages, err := tracepoint.Decode(frame.Data)
	if err != nil {
		*problems = append(*problems, fmt.Sprintf("frame %d (%s): %v", index, s.summary.Stream, err))
	}
	for _, message := range messages {
		if message.Timestamp < s.lastTimestamp {
			*problems = append(*problems, fmt.Sprintf("frame %d (%s): timestamp %d after %d",
				index, s.summary.Stream, message.Timestamp, s.lastTimestamp))
		}
		s.lastTimestamp = message.Timestamp
		if s.summary.FirstTimestamp == 0 {
			s.summary.FirstTimestamp = message.Timestamp
		}
		s.summary.LastTimestamp = message.Timestamp
	}
	s.summary.Messages += uint64(len(messages))
	return len(messages)
}

// checkSequence compares the frame's sequence number with the one
// expected after the previous frame. The gap must match what the
// writer recorded in Lost.
func (s *streamState) checkSequence(index uint64, frame capture.Frame, problems *[]string) {
	defer func() {
		s.nextSequence = frame.Sequence + 1
		s.seen = true
	}()
	if !s.seen || frame.Resync {
		if frame.Lost != 0 {
			*problems = append(*problems, fmt.Sprintf("frame %d (%s): first frame records %d lost",
				index, s.summary.Stream, frame.Lost))
		}
		return
	}
	gap := uint64(frame.Sequence - s.nextSequence)
	if gap != 0 {
		s.summary.Gaps++
		s.summary.Lost += gap
	}
	if gap != frame.Lost {
		*problems = append(*problems, fmt.Sprintf("frame %d (%s): sequence %d after %d, but %d recorded lost",
			index, s.summary.Stream, frame.Sequence, s.nextSequence-1, frame.Lost))
	}
}
