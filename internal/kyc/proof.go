// proof.go - Proof codec: builds proof artifacts and requirement fingerprints.
//
// The default codec is a hash-based stand-in for a zero-knowledge proving
// system: the proof is reproducible only by a party holding the commitment's
// preimage secret, and it binds to the exact canonical encoding of the
// request. It carries no zero-knowledge soundness; a production proving
// system replaces this codec and nothing else.

package kyc

import (
	"crypto/sha256"
	"fmt"

	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
)

// FingerprintSize is the size of a requirement fingerprint in bytes.
const FingerprintSize = 32

// Fingerprint is a hash of a canonicalized verification request. A proof
// generated for one request cannot be reinterpreted against a
// differently-parameterized request because the fingerprint differs.
type Fingerprint [FingerprintSize]byte

// ProofCodec builds proofs and requirement fingerprints. LedgerProtocol
// depends only on this interface and on proofs being opaque bytes, so a real
// proving system can be substituted without touching the state machine.
type ProofCodec interface {
	// BuildProof produces a proof that the committed document satisfies the
	// request. Only a holder of the secret can reproduce it.
	BuildProof(cm Commitment, req Request, secret Secret) ([]byte, error)

	// RequirementFingerprint hashes the canonical request encoding.
	RequirementFingerprint(req Request) (Fingerprint, error)
}

// MimcCodec is the default hash-based ProofCodec. The proof is a MiMC digest
// over the commitment, the requirement fingerprint and a digest of the
// secret.
type MimcCodec struct{}

// BuildProof implements ProofCodec.
func (MimcCodec) BuildProof(cm Commitment, req Request, secret Secret) ([]byte, error) {
	if err := secret.Validate(); err != nil {
		return nil, err
	}
	fp, err := MimcCodec{}.RequirementFingerprint(req)
	if err != nil {
		return nil, err
	}
	secretDigest := sha256.Sum256(secret)
	h := mimcNative.NewMiMC()
	writeFieldBlock(h, cm[:])
	writeFieldBlock(h, fp[:])
	writeFieldBlock(h, secretDigest[:])
	return h.Sum(nil), nil
}

// RequirementFingerprint implements ProofCodec.
func (MimcCodec) RequirementFingerprint(req Request) (Fingerprint, error) {
	canonical, err := req.Canonical()
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint: %w", err)
	}
	return sha256.Sum256(canonical), nil
}

// ProofHash hashes an opaque proof byte string. The ledger-side replay guard
// is keyed on this value.
func ProofHash(proof []byte) [32]byte {
	return sha256.Sum256(proof)
}

// writeFieldBlock feeds a 32-byte value into the MiMC digest as one
// block-size chunk, left-padded with zeros. A 256-bit value is always below
// the BW6-761 scalar field modulus, so the write cannot fail.
func writeFieldBlock(h interface {
	Write(p []byte) (int, error)
	BlockSize() int
}, b []byte) {
	block := make([]byte, h.BlockSize())
	copy(block[len(block)-len(b):], b)
	h.Write(block)
}
