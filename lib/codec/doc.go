// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// capture file format and its tools.
//
// Capture files are CBOR sequences (RFC 8742): a header record followed
// by one record per collected packet. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2), so the same capture session
// always produces identical bytes and files can be compared by digest.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For sequences:
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// # Struct Tag Rules
//
// Types that are only ever written to capture files carry `cbor` tags.
// Types that also appear in JSON tool output (inspection summaries)
// carry `json` tags only; fxamacker/cbor reads `json` tags when `cbor`
// tags are absent. Never use both on the same field.
package codec
