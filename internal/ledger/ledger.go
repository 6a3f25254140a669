// Package ledger provides the account store the MinKYC protocol runs
// against: a flat address space with atomic create-if-absent semantics.
//
// The ledger is the sole arbiter of concurrent mutation. CreateAccount
// either claims a free address or fails with ErrAccountExists, and
// SwapAccount replaces content only while it is unchanged; those two
// primitives are the check-and-set operations the protocol uses for identity
// creation, proof replay protection and record updates under contention.
// Three implementations are provided:
// an in-memory store for tests, a JSON-file store for local single-user
// runs, and a MongoDB store for a shared deployment.
package ledger

import (
	"context"
	"errors"
)

// ErrAccountExists is returned by CreateAccount when the address is already
// occupied. For a replay receipt this is the intended outcome of losing the
// race, not a fault.
var ErrAccountExists = errors.New("ledger: account already exists")

// ErrAccountNotFound is returned when no account lives at the address.
var ErrAccountNotFound = errors.New("ledger: account not found")

// ErrAccountConflict is returned by SwapAccount when the stored content no
// longer matches the expected value. The caller re-reads and re-applies.
var ErrAccountConflict = errors.New("ledger: account content changed")

// Ledger is the external trust-minimized state store. All operations are
// atomic and serialized per address by the implementation.
type Ledger interface {
	// CreateAccount claims a currently-free address and stores data there.
	// Returns ErrAccountExists if the address is occupied. A retry after an
	// interrupted call is idempotent: if the first attempt landed, the retry
	// observes ErrAccountExists.
	CreateAccount(ctx context.Context, addr Address, data []byte) error

	// GetAccount returns the data stored at addr, or ErrAccountNotFound.
	GetAccount(ctx context.Context, addr Address) ([]byte, error)

	// UpdateAccount overwrites the data of an existing account.
	// Returns ErrAccountNotFound if the address is free.
	UpdateAccount(ctx context.Context, addr Address, data []byte) error

	// SwapAccount atomically replaces the data of an existing account, but
	// only while the stored content still equals old. Returns
	// ErrAccountNotFound if the address is free and ErrAccountConflict if
	// another writer got there first.
	SwapAccount(ctx context.Context, addr Address, old, new []byte) error

	// CloseAccount destroys the account, freeing its address for reuse.
	// Returns ErrAccountNotFound if the address is free.
	CloseAccount(ctx context.Context, addr Address) error
}
