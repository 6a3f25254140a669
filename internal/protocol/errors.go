// errors.go - Protocol error taxonomy.
//
// Every protocol failure wraps one of these sentinels with enough context
// (operation, address, index, owner) to decide on a retry strategy.
// ErrAlreadyExists and ErrIndexMismatch are recoverable by re-reading ledger
// state and retrying with corrected inputs; ErrRevoked, ErrUnauthorized and
// ErrReplayedProof are final outcomes for the given inputs.

package protocol

import "errors"

var (
	// ErrNotFound: no identity, counter or receipt at the expected address.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists: address collision on creation. A consistency fault
	// under normal counter discipline; re-read the counter and re-derive.
	ErrAlreadyExists = errors.New("already exists")

	// ErrRevoked: the identity exists but is permanently invalidated.
	ErrRevoked = errors.New("identity revoked")

	// ErrIndexMismatch: a stale local reference points at the wrong derived
	// address after the counter advanced.
	ErrIndexMismatch = errors.New("index mismatch")

	// ErrReplayedProof: the receipt address is already claimed; this exact
	// proof was consumed before.
	ErrReplayedProof = errors.New("proof already used")

	// ErrUnauthorized: the caller is not the record's owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrMalformedInput: a document, request or account payload fails
	// canonicalization or schema-versioned decoding.
	ErrMalformedInput = errors.New("malformed input")
)
