// Package protocol implements the MinKYC commitment-and-proof ledger state
// machine.
//
// Overview:
//   - Per-owner identity counters allow multiple identities per owner, each
//     at a deterministically derived address
//   - Identity records carry a document commitment, a revoked flag and a
//     verification counter
//   - Proof receipts are one-time tombstone accounts that make a specific
//     proof non-replayable
//   - Operations: Initialize, Reset (single-identity variant), VerifyProof,
//     Revoke and Close
//
// Security Model:
//   - All state transitions are atomic ledger operations; the ledger's
//     create-if-absent and compare-and-swap primitives are the only
//     synchronization mechanism, so a revocation is never overwritten by a
//     concurrent verification write-back
//   - Replay protection: a receipt account derived from (identity, proof
//     hash) can be created at most once
//   - Stale-index drift: VerifyProof cross-checks the caller-supplied index
//     against the stored one
//   - Proof content validity is delegated to a pluggable ContentVerifier;
//     this package enforces binding and replay only
package protocol
