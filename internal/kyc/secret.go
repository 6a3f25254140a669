// secret.go - Caller-managed commitment secret.
//
// The secret is generated once per owner, persisted by the caller's local
// storage, and only ever read by the protocol. It is never rotated
// automatically; losing it makes the commitment unreproducible, leaking it
// lets anyone holding the document fields recompute the commitment offline.

package kyc

import (
	"crypto/rand"
	"fmt"
)

// SecretSize is the minimum secret length in bytes (256 bits of entropy).
const SecretSize = 32

// Secret is an opaque high-entropy byte blob.
type Secret []byte

// NewSecret generates a fresh secret using crypto/rand.
func NewSecret() (Secret, error) {
	s := make(Secret, SecretSize)
	if _, err := rand.Read(s); err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return s, nil
}

// Validate checks the secret carries enough entropy to be usable.
func (s Secret) Validate() error {
	if len(s) < SecretSize {
		return fmt.Errorf("secret: %d bytes is below the %d-byte minimum", len(s), SecretSize)
	}
	return nil
}
