// Package hash provides the fixed-width digest and address types used
// throughout the chain: a 256-bit block/transaction hash with a total
// order for the proof-of-work comparison, and a 160-bit account
// address derived from a public key.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of an H256 digest.
const Size = 32

// AddressSize is the length in bytes of an Address.
const AddressSize = 20

// ZeroHash is the canonical all-zero H256, used as the genesis block's
// parent hash.
var ZeroHash = H256{}

// H256 is an opaque 256-bit digest with a total order over its raw
// bytes (big-endian, lexicographic), which is what the proof-of-work
// check compares against the difficulty target.
type H256 [Size]byte

// FromBytes truncates or zero-pads b into an H256. Used for hashes
// computed elsewhere (e.g. sha256.Sum256 results).
func FromBytes(b []byte) H256 {
	var h H256
	copy(h[:], b)
	return h
}

// Sum256 hashes data with SHA-256 and returns it as an H256.
func Sum256(data []byte) H256 {
	return H256(sha256.Sum256(data))
}

// Combine implements the Merkle pairwise-hash step: combine(a, b) =
// SHA-256(a || b).
func Combine(a, b H256) H256 {
	buf := make([]byte, 0, Size*2)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return Sum256(buf)
}

// Bytes returns the digest as a byte slice.
func (h H256) Bytes() []byte {
	return h[:]
}

// String renders the digest as lower-case hex with a 0x prefix.
func (h H256) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h H256) IsZero() bool {
	return h == ZeroHash
}

// LessOrEqual reports whether h <= other, treating both as big-endian
// unsigned integers. This is the proof-of-work acceptance predicate:
// hash(block) <= difficulty.
func (h H256) LessOrEqual(other H256) bool {
	return bytes.Compare(h[:], other[:]) <= 0
}

// ParseH256 parses a 0x-prefixed or bare hex string into an H256.
func ParseH256(s string) (H256, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return H256{}, fmt.Errorf("decoding hash: %w", err)
	}
	if len(b) != Size {
		return H256{}, fmt.Errorf("hash must be %d bytes, got %d", Size, len(b))
	}
	var h H256
	copy(h[:], b)
	return h, nil
}

// Address is the 20-byte account identifier: the trailing 20 bytes of
// SHA-256 over the owner's public key.
type Address [AddressSize]byte

// ZeroAddress is the all-zero address.
var ZeroAddress = Address{}

// AddressFromPublicKey derives the Address owned by pub, as the
// trailing 20 bytes of SHA-256(pub).
func AddressFromPublicKey(pub []byte) Address {
	sum := sha256.Sum256(pub)
	var a Address
	copy(a[:], sum[len(sum)-AddressSize:])
	return a
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// String renders the address as lower-case hex with a 0x prefix.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// ParseAddress parses a 0x-prefixed or bare hex string into an Address.
func ParseAddress(s string) (Address, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("decoding address: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
