// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/timeline/capture"
	"github.com/bureau-foundation/timeline/lib/process"
	"github.com/bureau-foundation/timeline/lib/tracepoint"
	"github.com/bureau-foundation/timeline/timeline"
	"github.com/bureau-foundation/timeline/tlstream"
)

var startedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// body encodes messages with the given timestamps as a packet body.
func body(timestamps ...uint64) []byte {
	var data []byte
	for i, timestamp := range timestamps {
		message := make([]byte, tracepoint.HeaderSize+4)
		binary.LittleEndian.PutUint32(message[0:4], uint32(i))
		binary.LittleEndian.PutUint64(message[4:12], timestamp)
		binary.LittleEndian.PutUint32(message[12:16], 4)
		data = append(data, message...)
	}
	return data
}

type testPacket struct {
	kind     tlstream.Kind
	sequence uint32
	body     []byte
}

// writeCapture returns a capture of packets. The trailer is written
// only when complete is set.
func writeCapture(t *testing.T, complete bool, packets ...testPacket) []byte {
	t.Helper()
	var file bytes.Buffer
	writer, err := capture.NewWriter(&file, capture.WriterOptions{
		Streams:     []tlstream.Kind{tlstream.KindObjSummary, tlstream.KindObj, tlstream.KindAux},
		Compression: capture.CompressionZstd,
		Digests:     true,
		StartedAt:   startedAt,
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, packet := range packets {
		err := writer.WritePacket(timeline.WirePacket{
			Header:   timeline.HeaderFor(packet.kind),
			Kind:     packet.kind,
			Sequence: packet.sequence,
			Body:     packet.body,
		})
		if err != nil {
			t.Fatalf("WritePacket: %v", err)
		}
	}
	if complete {
		if err := writer.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	return file.Bytes()
}

func findStream(t *testing.T, summary *Summary, name string) StreamSummary {
	t.Helper()
	for _, stream := range summary.Streams {
		if stream.Stream == name {
			return stream
		}
	}
	t.Fatalf("stream %q missing from summary", name)
	return StreamSummary{}
}

func TestInspectCleanCapture(t *testing.T) {
	data := writeCapture(t, true,
		testPacket{tlstream.KindObjSummary, 0, body(10, 20)},
		testPacket{tlstream.KindObj, 0, body(11, 12, 13)},
		testPacket{tlstream.KindObj, 1, body(14)},
		testPacket{tlstream.KindAux, 0, body(15)},
	)

	var frames []FrameLine
	summary, err := inspect(bytes.NewReader(data), func(frame FrameLine) { frames = append(frames, frame) })
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !summary.OK() {
		t.Fatalf("problems: %v", summary.Problems)
	}
	if !summary.StartedAt.Equal(startedAt) || summary.Frames != 4 || summary.Compression != "zstd" || !summary.Digests {
		t.Errorf("summary = %+v", summary)
	}
	if len(summary.Streams) != 3 || summary.Streams[0].Stream != "obj_summary" {
		t.Fatalf("streams = %+v", summary.Streams)
	}

	obj := findStream(t, summary, "obj")
	if obj.Packets != 2 || obj.Messages != 4 || obj.Gaps != 0 || obj.Lost != 0 {
		t.Errorf("obj = %+v", obj)
	}
	if obj.FirstTimestamp != 11 || obj.LastTimestamp != 14 {
		t.Errorf("obj timestamps = %d..%d, want 11..14", obj.FirstTimestamp, obj.LastTimestamp)
	}
	if obj.Bytes != uint64(len(body(1, 1, 1, 1))) {
		t.Errorf("obj bytes = %d", obj.Bytes)
	}

	if len(frames) != 4 || frames[1].Stream != "obj" || frames[1].Messages != 3 || frames[2].Sequence != 1 {
		t.Errorf("frames = %+v", frames)
	}
}

func TestInspectCountsGaps(t *testing.T) {
	data := writeCapture(t, true,
		testPacket{tlstream.KindObj, 0, body(1)},
		testPacket{tlstream.KindObj, 1, body(2)},
		testPacket{tlstream.KindObj, 4, body(3)},
		testPacket{tlstream.KindObj, 0, body(1)},
		testPacket{tlstream.KindObj, 2, body(2)},
	)

	summary, err := inspect(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !summary.OK() {
		t.Fatalf("problems: %v", summary.Problems)
	}
	obj := findStream(t, summary, "obj")
	if obj.Gaps != 2 || obj.Lost != 3 || obj.Resyncs != 1 {
		t.Errorf("obj = %+v, want 2 gaps, 3 lost, 1 resync", obj)
	}
}

func TestInspectProblems(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want string
	}{
		{
			name: "missing trailer",
			data: func(t *testing.T) []byte {
				return writeCapture(t, false, testPacket{tlstream.KindAux, 0, body(1)})
			},
			want: "no trailer",
		},
		{
			name: "timestamp regression",
			data: func(t *testing.T) []byte {
				return writeCapture(t, true,
					testPacket{tlstream.KindAux, 0, body(5, 6)},
					testPacket{tlstream.KindAux, 1, body(4)},
				)
			},
			want: "timestamp 4 after 6",
		},
		{
			name: "truncated message",
			data: func(t *testing.T) []byte {
				return writeCapture(t, true, testPacket{tlstream.KindObj, 0, body(1)[:10]})
			},
			want: "truncated",
		},
		{
			name: "tampered frame",
			data: func(t *testing.T) []byte {
				var file bytes.Buffer
				writer, err := capture.NewWriter(&file, capture.WriterOptions{
					Streams: []tlstream.Kind{tlstream.KindAux},
					Digests: true,
				})
				if err != nil {
					t.Fatal(err)
				}
				payload := body(0x0102030405060708)
				writer.WritePacket(timeline.WirePacket{Header: timeline.HeaderFor(tlstream.KindAux), Kind: tlstream.KindAux, Body: payload})
				writer.Close()
				data := file.Bytes()
				offset := bytes.Index(data, payload)
				if offset < 0 {
					t.Fatal("payload not stored raw")
				}
				data[offset+5] ^= 0x40
				return data
			},
			want: "digest mismatch",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			summary, err := inspect(bytes.NewReader(test.data(t)), nil)
			if err != nil {
				t.Fatalf("inspect: %v", err)
			}
			if summary.OK() {
				t.Fatal("inspect found no problems")
			}
			if joined := strings.Join(summary.Problems, "\n"); !strings.Contains(joined, test.want) {
				t.Errorf("problems %q do not mention %q", joined, test.want)
			}
		})
	}
}

func TestInspectRejectsNonCapture(t *testing.T) {
	if _, err := inspect(strings.NewReader("not cbor at all"), nil); !errors.Is(err, capture.ErrNotCapture) {
		t.Fatalf("inspect = %v, want ErrNotCapture", err)
	}
}

func TestRunText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.capture")
	data := writeCapture(t, true,
		testPacket{tlstream.KindObj, 0, body(1, 2)},
		testPacket{tlstream.KindObj, 3, body(3)},
	)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run([]string{"--frames", path}, nil, &stdout); err != nil {
		t.Fatalf("run: %v\n%s", err, stdout.String())
	}
	output := stdout.String()
	for _, want := range []string{
		"started:     2026-03-01T12:00:00Z",
		"STREAM",
		"lost 2",
		"ok: capture complete",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output lacks %q:\n%s", want, output)
		}
	}
}

func TestRunJSONFromStdin(t *testing.T) {
	data := writeCapture(t, true,
		testPacket{tlstream.KindObjSummary, 0, body(7)},
		testPacket{tlstream.KindAux, 0, body(8, 9)},
	)

	var stdout bytes.Buffer
	if err := run([]string{"--json", "--frames", "-"}, bytes.NewReader(data), &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	var report struct {
		Frames    uint64 `json:"frames"`
		Complete  bool   `json:"complete"`
		Streams   []StreamSummary
		FrameList []FrameLine `json:"frame_list"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if report.Frames != 2 || !report.Complete || len(report.FrameList) != 2 {
		t.Errorf("report = %+v", report)
	}
	aux := report.Streams[len(report.Streams)-1]
	if aux.Stream != "aux" || aux.Messages != 2 {
		t.Errorf("aux = %+v", aux)
	}
}

func TestRunReportsProblems(t *testing.T) {
	data := writeCapture(t, false, testPacket{tlstream.KindAux, 0, body(1)})

	var stdout bytes.Buffer
	err := run([]string{"-"}, bytes.NewReader(data), &stdout)
	if !errors.Is(err, errVerification) {
		t.Fatalf("run = %v, want errVerification", err)
	}
	var coder process.ExitCoder
	if !errors.As(err, &coder) || coder.ExitCode() != verificationExitCode {
		t.Errorf("run error carries no exit code %d", verificationExitCode)
	}
	if !strings.Contains(stdout.String(), "1 problem(s)") {
		t.Errorf("output does not list the problem:\n%s", stdout.String())
	}
}

func TestRunUsage(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(nil, nil, &stdout); err == nil {
		t.Error("run with no capture succeeded")
	}
	if !strings.Contains(stdout.String(), "Usage: timeline-inspect") {
		t.Errorf("usage not printed:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"--version"}, nil, &stdout); err != nil {
		t.Fatalf("run --version: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "timeline-inspect ") {
		t.Errorf("version output = %q", stdout.String())
	}
}
