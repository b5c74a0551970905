// Package ledgerhash implements the hash primitives used throughout the
// journal verification chain: a fixed-length SHA-256 hash value, the
// order-normalizing pairwise combinator, and the Merkle tree root
// calculation built on top of it.
//
// The combinator is the bit-exact contract of the whole toolkit. It sorts
// its two inputs by signed byte value in little-endian order (index 31
// compared first), concatenates the smaller one first, and returns the
// SHA-256 of the 64-byte result. Getting the comparator direction or the
// concatenation order wrong produces valid-looking but useless digests,
// so both are covered by literal-value tests.
package ledgerhash

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

// Size is the length in bytes of every non-empty hash.
const Size = sha256.Size

// ErrInvalidHashLength reports a non-empty hash that is not exactly Size bytes.
var ErrInvalidHashLength = fmt.Errorf("hash must be empty or exactly %d bytes", Size)

// Hash is a SHA-256 hash value. The zero-length hash is the designated
// "empty" hash and acts as the identity element of Combine; every other
// valid Hash is exactly Size bytes.
type Hash []byte

// Empty returns the empty hash.
func Empty() Hash {
	return Hash{}
}

// Sum returns the SHA-256 hash of data.
func Sum(data []byte) Hash {
	h := sha256.Sum256(data)
	return h[:]
}

// IsEmpty reports whether h is the empty hash.
func (h Hash) IsEmpty() bool {
	return len(h) == 0
}

// Valid reports whether h is the empty hash or exactly Size bytes.
func (h Hash) Valid() bool {
	return len(h) == 0 || len(h) == Size
}

// Equal reports whether two hashes hold identical bytes.
func (h Hash) Equal(other Hash) bool {
	return bytes.Equal(h, other)
}

// String returns the base64 form of the hash, the encoding the ledger
// service uses on the wire.
func (h Hash) String() string {
	return base64.StdEncoding.EncodeToString(h)
}

// Compare orders two Size-byte hashes by their signed byte values in
// little-endian order: the byte at index Size-1 is the most significant.
// It returns -1, 0, or 1. The result is undefined for hashes of any other
// length; Combine validates lengths before comparing.
func Compare(h1, h2 Hash) int {
	for i := Size - 1; i >= 0; i-- {
		b1, b2 := int8(h1[i]), int8(h2[i])
		switch {
		case b1 < b2:
			return -1
		case b1 > b2:
			return 1
		}
	}
	return 0
}

// Combine merges two hashes into one. An empty input acts as the identity:
// the other input is returned unchanged. Otherwise both inputs must be
// exactly Size bytes; they are concatenated smaller-first per Compare and
// the SHA-256 of the concatenation is returned.
//
// Combine is commutative: Combine(a, b) equals Combine(b, a).
func Combine(h1, h2 Hash) (Hash, error) {
	if h1.IsEmpty() {
		return h2, nil
	}
	if h2.IsEmpty() {
		return h1, nil
	}
	if len(h1) != Size {
		return nil, fmt.Errorf("first operand has %d bytes: %w", len(h1), ErrInvalidHashLength)
	}
	if len(h2) != Size {
		return nil, fmt.Errorf("second operand has %d bytes: %w", len(h2), ErrInvalidHashLength)
	}

	concatenated := make([]byte, 0, 2*Size)
	if Compare(h1, h2) < 0 {
		concatenated = append(concatenated, h1...)
		concatenated = append(concatenated, h2...)
	} else {
		concatenated = append(concatenated, h2...)
		concatenated = append(concatenated, h1...)
	}
	return Sum(concatenated), nil
}

// MerkleRoot reduces a sequence of leaf hashes to a single root hash.
// An empty sequence yields the empty hash and a single leaf is returned
// unchanged. Otherwise adjacent pairs are combined left to right; an odd
// trailing leaf is carried to the next level unchanged. Leaf order is the
// caller's responsibility.
func MerkleRoot(leaves []Hash) (Hash, error) {
	if len(leaves) == 0 {
		return Empty(), nil
	}

	level := leaves
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			combined, err := Combine(level[i], level[i+1])
			if err != nil {
				return nil, fmt.Errorf("combine leaves %d and %d: %w", i, i+1, err)
			}
			next = append(next, combined)
		}
		level = next
	}
	return level[0], nil
}

// HashValue hashes a structured value through its canonical serialized
// form. The canonical form is deterministic JSON: struct fields in
// declaration order, map keys sorted, as produced by encoding/json.
func HashValue(v any) (Hash, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal value for hashing: %w", err)
	}
	return Sum(data), nil
}

// FlipRandomBit returns a copy of b with a single random bit inverted.
// It is used to demonstrate tamper detection and fails on empty input.
func FlipRandomBit(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("cannot flip a bit in an empty byte slice")
	}
	altered := make([]byte, len(b))
	copy(altered, b)
	pos := rand.IntN(len(altered))
	bit := rand.IntN(8)
	altered[pos] ^= 1 << bit
	return altered, nil
}
