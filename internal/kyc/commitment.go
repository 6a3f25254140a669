// commitment.go - Document commitment codec.
//
// A commitment is the 32-byte hash stored on the ledger in place of the
// document: cm = SHA-256(canonical(document) || secret). Determinism comes
// entirely from the canonical encoding; see document.go.

package kyc

import (
	"crypto/sha256"
	"fmt"
)

// CommitmentSize is the size of a commitment hash in bytes.
const CommitmentSize = 32

// Commitment is a fixed-size hash binding a document and a secret.
type Commitment [CommitmentSize]byte

// ZeroCommitment is the all-zero hash. A committed identity record never
// carries it; decoders treat it as "not yet committed".
var ZeroCommitment Commitment

// Commit canonicalizes the document, concatenates the secret and hashes the
// result. Repeated calls with identical inputs yield the identical hash
// regardless of field insertion order.
func Commit(doc Document, secret Secret) (Commitment, error) {
	if err := secret.Validate(); err != nil {
		return ZeroCommitment, err
	}
	canonical, err := doc.Canonical()
	if err != nil {
		return ZeroCommitment, fmt.Errorf("commit: %w", err)
	}
	h := sha256.New()
	h.Write(canonical)
	h.Write(secret)
	var cm Commitment
	copy(cm[:], h.Sum(nil))
	return cm, nil
}
