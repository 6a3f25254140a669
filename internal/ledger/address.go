// address.go - Deterministic account address derivation.
//
// Every protocol account lives at an address derived from fixed seed
// components, so accounts can be located without a lookup table. Derived
// addresses and externally-owned (key-controlled) addresses are produced by
// disjoint preimage families: each family hashes a distinct domain marker, so
// no public key can ever collide with a protocol-owned slot.

package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// AddressSize is the size of a ledger address in bytes.
const AddressSize = 32

// Address identifies an account within the ledger's address space.
type Address [AddressSize]byte

// ProgramID scopes every derived address to this protocol deployment.
// Changing it moves the entire address space.
const ProgramID = "minkyc.protocol.v1"

const (
	markerDerived  = "DerivedProtocolAddress"
	markerExternal = "ExternallyOwnedAccount"
)

// Derive computes the protocol-owned address for a namespace tag and seed
// components. Pure and deterministic: identical inputs always yield the same
// address, and any change to any input (including the tag) changes it with
// overwhelming probability. Seeds are length-prefixed so that no two distinct
// seed lists share a preimage.
func Derive(tag string, seeds ...[]byte) Address {
	h := sha256.New()
	h.Write([]byte(markerDerived))
	h.Write([]byte(ProgramID))
	writeSeed(h, []byte(tag))
	for _, s := range seeds {
		writeSeed(h, s)
	}
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

// FromPublicKey computes the externally-owned address for a public key. The
// external marker keeps this family disjoint from Derive's output.
func FromPublicKey(pub []byte) Address {
	h := sha256.New()
	h.Write([]byte(markerExternal))
	writeSeed(h, pub)
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

func writeSeed(h interface{ Write(p []byte) (int, error) }, seed []byte) {
	var n [4]byte
	n[0] = byte(len(seed) >> 24)
	n[1] = byte(len(seed) >> 16)
	n[2] = byte(len(seed) >> 8)
	n[3] = byte(len(seed))
	h.Write(n[:])
	h.Write(seed)
}

// String returns the hex form of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// ParseAddress decodes a hex-encoded address.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("address: %w", err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("address: %d bytes, want %d", len(b), AddressSize)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
