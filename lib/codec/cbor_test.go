// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// sampleFrame mirrors the shape of a capture frame record.
type sampleFrame struct {
	Kind     string `cbor:"kind"`
	Sequence uint64 `cbor:"seq"`
	Lost     uint64 `cbor:"lost,omitempty"`
	Data     []byte `cbor:"data"`
}

// sampleSummary uses json tags, like the inspection summary types that
// are written both as JSON and CBOR.
type sampleSummary struct {
	Packets int    `json:"packets"`
	Stream  string `json:"stream"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFrame{
		Kind:     "obj",
		Sequence: 42,
		Data:     []byte{0x01, 0x02, 0x03, 0x00, 0xff},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.Kind != original.Kind || decoded.Sequence != original.Sequence ||
		!bytes.Equal(decoded.Data, original.Data) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"seq": 7, "kind": "aux", "lost": 1}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderSequence(t *testing.T) {
	frames := []sampleFrame{
		{Kind: "obj", Sequence: 0, Data: []byte("a")},
		{Kind: "obj", Sequence: 1, Lost: 3, Data: []byte("bb")},
		{Kind: "aux", Sequence: 0, Data: []byte("ccc")},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, frame := range frames {
		if err := encoder.Encode(frame); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range frames {
		var got sampleFrame
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode frame %d: %v", i, err)
		}
		if got.Kind != want.Kind || got.Sequence != want.Sequence || got.Lost != want.Lost ||
			!bytes.Equal(got.Data, want.Data) {
			t.Errorf("frame %d: got %+v, want %+v", i, got, want)
		}
	}

	var extra sampleFrame
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("Decode past end = %v, want io.EOF", err)
	}
}

func TestJSONTagFallback(t *testing.T) {
	original := sampleSummary{Packets: 3, Stream: "obj_summary"}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["stream"] != "obj_summary" {
		t.Errorf("json tag name not used as CBOR key: %v", decoded)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withLost, err := Marshal(sampleFrame{Kind: "obj", Lost: 1})
	if err != nil {
		t.Fatal(err)
	}
	withoutLost, err := Marshal(sampleFrame{Kind: "obj"})
	if err != nil {
		t.Fatal(err)
	}
	if len(withoutLost) >= len(withLost) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(withoutLost), len(withLost))
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var frame sampleFrame
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &frame); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}

func TestUnmarshalRejectsOversizedByteString(t *testing.T) {
	// Byte string header claiming 16 MiB (major type 2, 4-byte length).
	data := []byte{0x5a, 0x01, 0x00, 0x00, 0x00}
	var payload []byte
	if err := Unmarshal(data, &payload); err == nil {
		t.Fatal("Unmarshal accepted a byte string beyond the frame limit")
	}
}

func TestDiagnoseFirst(t *testing.T) {
	item1, err := Marshal("hello")
	if err != nil {
		t.Fatalf("Marshal item 1: %v", err)
	}
	item2, err := Marshal(int64(42))
	if err != nil {
		t.Fatalf("Marshal item 2: %v", err)
	}
	sequence := append(append([]byte{}, item1...), item2...)

	notation, remaining, err := DiagnoseFirst(sequence)
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"hello"`) {
		t.Errorf("first item notation %q does not contain \"hello\"", notation)
	}

	notation2, remaining2, err := DiagnoseFirst(remaining)
	if err != nil {
		t.Fatalf("DiagnoseFirst second: %v", err)
	}
	if !strings.Contains(notation2, "42") {
		t.Errorf("second item notation %q does not contain \"42\"", notation2)
	}
	if len(remaining2) != 0 {
		t.Errorf("expected no remaining bytes, got %d", len(remaining2))
	}
}

func BenchmarkMarshalFrame(b *testing.B) {
	frame := sampleFrame{Kind: "obj", Sequence: 42, Data: make([]byte, 4096)}
	b.ReportAllocs()
	for b.Loop() {
		Marshal(frame)
	}
}
