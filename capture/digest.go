// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// domainKey is a 32-byte BLAKE3 key. The key separates digests of
// packet bytes from digests of the session, so a packet can never be
// mistaken for a session summary. Keys are the ASCII domain name
// zero-padded to 32 bytes; changing them invalidates every existing
// capture file.
type domainKey [32]byte

var (
	packetDomainKey = domainKey{
		't', 'i', 'm', 'e', 'l', 'i', 'n', 'e', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e',
		'.', 'p', 'a', 'c', 'k', 'e', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	sessionDomainKey = domainKey{
		't', 'i', 'm', 'e', 'l', 'i', 'n', 'e', '.', 'c', 'a', 'p', 't', 'u', 'r', 'e',
		'.', 's', 'e', 's', 's', 'i', 'o', 'n', 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// PacketDigest returns the packet-domain digest of an uncompressed
// packet body.
func PacketDigest(data []byte) Digest {
	hasher := newKeyedHasher(packetDomainKey)
	hasher.Write(data)
	return sum(hasher)
}

// sessionHasher accumulates frame digests, in order, into the session
// digest stored in the trailer.
type sessionHasher struct {
	hasher *blake3.Hasher
}

func newSessionHasher() *sessionHasher {
	return &sessionHasher{hasher: newKeyedHasher(sessionDomainKey)}
}

func (s *sessionHasher) add(frame Digest) {
	s.hasher.Write(frame[:])
}

func (s *sessionHasher) digest() Digest {
	return sum(s.hasher)
}

func newKeyedHasher(key domainKey) *blake3.Hasher {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("capture: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

func sum(hasher *blake3.Hasher) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
