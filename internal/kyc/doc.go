// Package kyc implements the document commitment and proof codecs of the
// MinKYC protocol.
//
// Overview:
//   - Canonical serialization for passport documents and verification requests
//   - Commitments bind a document and a caller-held secret into a 32-byte hash
//   - Proofs are opaque byte strings bound to a commitment and a request
//   - A mock passport generator produces realistic test documents
//
// Security Model:
//   - Commitments use SHA-256 over the canonical document encoding plus the secret
//   - The default proof construction uses MiMC as a hash-based stand-in for a
//     zero-knowledge witness; it is substitutable via the ProofCodec interface
//   - The secret is the sole privacy-preserving ingredient: document fields are
//     often guessable, so the secret must carry at least 256 bits of entropy
//   - Secrets are generated with crypto/rand; the mock passport generator
//     uses math/rand and its output carries no secret material
//
// Canonicalization is load-bearing: every producer and verifier must agree on
// the byte-exact encoding of a document or request, otherwise two encoders
// produce different commitments for the same data. The Canonical methods are
// the single shared definition.
package kyc
