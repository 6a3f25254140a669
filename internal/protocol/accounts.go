// accounts.go - On-ledger account layouts and their binary codecs.
//
// Each account payload starts with an 8-byte discriminator (the first 8
// bytes of SHA-256("account:<Name>")) followed by fixed-size little-endian
// fields. Decoding is schema-versioned and fails loudly on an unexpected
// discriminator or length; there is no best-effort fallback to zero values.

package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/minkyc/minkyc-go/internal/kyc"
	"github.com/minkyc/minkyc-go/internal/ledger"
)

// Owner is an externally-supplied public identity key. The protocol never
// generates owners; it treats them as opaque comparable byte sequences.
type Owner [32]byte

// discriminator derives the 8-byte schema tag for an account type.
func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	counterDiscriminator = discriminator("IdentityCounter")
	recordDiscriminator  = discriminator("IdentityRecord")
	receiptDiscriminator = discriminator("ProofReceipt")
)

// IdentityCounter is the per-owner monotonic sequence. Created lazily on the
// first identity creation for the owner; count increments by exactly 1 per
// new identity, never on reset or close.
type IdentityCounter struct {
	Owner Owner
	Count uint64
}

const counterLen = 8 + 32 + 8

// Encode serializes the counter account payload.
func (c IdentityCounter) Encode() []byte {
	out := make([]byte, 0, counterLen)
	out = append(out, counterDiscriminator[:]...)
	out = append(out, c.Owner[:]...)
	out = binary.LittleEndian.AppendUint64(out, c.Count)
	return out
}

// DecodeIdentityCounter decodes a counter account payload.
func DecodeIdentityCounter(data []byte) (IdentityCounter, error) {
	if err := checkLayout(data, counterDiscriminator, counterLen, "identity counter"); err != nil {
		return IdentityCounter{}, err
	}
	var c IdentityCounter
	copy(c.Owner[:], data[8:40])
	c.Count = binary.LittleEndian.Uint64(data[40:48])
	return c, nil
}

// IdentityRecord is the per-identity state object. Index is immutable after
// creation and always matches the counter value observed at creation time.
// Commitment is never all-zero once the record is committed.
type IdentityRecord struct {
	Owner             Owner
	Index             uint64
	Commitment        kyc.Commitment
	Revoked           bool
	VerificationCount uint64
}

const recordLen = 8 + 32 + 8 + 32 + 1 + 8

// Encode serializes the identity record payload.
func (r IdentityRecord) Encode() []byte {
	out := make([]byte, 0, recordLen)
	out = append(out, recordDiscriminator[:]...)
	out = append(out, r.Owner[:]...)
	out = binary.LittleEndian.AppendUint64(out, r.Index)
	out = append(out, r.Commitment[:]...)
	if r.Revoked {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = binary.LittleEndian.AppendUint64(out, r.VerificationCount)
	return out
}

// DecodeIdentityRecord decodes an identity record payload.
func DecodeIdentityRecord(data []byte) (IdentityRecord, error) {
	if err := checkLayout(data, recordDiscriminator, recordLen, "identity record"); err != nil {
		return IdentityRecord{}, err
	}
	var r IdentityRecord
	copy(r.Owner[:], data[8:40])
	r.Index = binary.LittleEndian.Uint64(data[40:48])
	copy(r.Commitment[:], data[48:80])
	switch data[80] {
	case 0:
		r.Revoked = false
	case 1:
		r.Revoked = true
	default:
		return IdentityRecord{}, fmt.Errorf("identity record: revoked flag %#x: %w", data[80], ErrMalformedInput)
	}
	r.VerificationCount = binary.LittleEndian.Uint64(data[81:89])
	return r, nil
}

// ProofReceipt is a one-time marker account. Its mere existence at the
// derived address is the replay guard; it is never mutated or destroyed.
type ProofReceipt struct {
	Identity  ledger.Address
	ProofHash [32]byte
}

const receiptLen = 8 + 32 + 32

// Encode serializes the proof receipt payload.
func (p ProofReceipt) Encode() []byte {
	out := make([]byte, 0, receiptLen)
	out = append(out, receiptDiscriminator[:]...)
	out = append(out, p.Identity[:]...)
	out = append(out, p.ProofHash[:]...)
	return out
}

// DecodeProofReceipt decodes a proof receipt payload.
func DecodeProofReceipt(data []byte) (ProofReceipt, error) {
	if err := checkLayout(data, receiptDiscriminator, receiptLen, "proof receipt"); err != nil {
		return ProofReceipt{}, err
	}
	var p ProofReceipt
	copy(p.Identity[:], data[8:40])
	copy(p.ProofHash[:], data[40:72])
	return p, nil
}

func checkLayout(data []byte, disc [8]byte, wantLen int, name string) error {
	if len(data) != wantLen {
		return fmt.Errorf("%s: %d bytes, want %d: %w", name, len(data), wantLen, ErrMalformedInput)
	}
	for i := range disc {
		if data[i] != disc[i] {
			return fmt.Errorf("%s: unexpected discriminator %x: %w", name, data[:8], ErrMalformedInput)
		}
	}
	return nil
}
