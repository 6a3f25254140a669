// protocol.go - The commitment-and-proof ledger state machine.
//
// States per identity: Absent -> Active -> Revoked. Correctness under
// concurrency comes from the ledger's create-if-absent and compare-and-swap
// primitives, not from in-process locking: identity creation and proof replay
// protection are indivisible check-and-set operations against a derived
// address, and record write-backs are conditional on the content read.

package protocol

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/minkyc/minkyc-go/internal/kyc"
	"github.com/minkyc/minkyc-go/internal/ledger"
)

// Namespace tags for derived addresses.
const (
	SeedIdentityCounter = "identity_counter"
	SeedIdentity        = "identity"
	SeedProofReceipt    = "proof_receipt"
)

// CounterAddress derives the per-owner counter account address.
func CounterAddress(owner Owner) ledger.Address {
	return ledger.Derive(SeedIdentityCounter, owner[:])
}

// IdentityAddress derives the identity record address for (owner, index).
func IdentityAddress(owner Owner, index uint64) ledger.Address {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], index)
	return ledger.Derive(SeedIdentity, owner[:], le[:])
}

// SingleIdentityAddress derives the fixed identity address of the
// single-identity protocol variant, seeded by the owner alone.
func SingleIdentityAddress(owner Owner) ledger.Address {
	return ledger.Derive(SeedIdentity, owner[:])
}

// ReceiptAddress derives the replay-guard receipt address for a proof
// submitted against an identity.
func ReceiptAddress(identity ledger.Address, proofHash [32]byte) ledger.Address {
	return ledger.Derive(SeedProofReceipt, identity[:], proofHash[:])
}

// ContentVerifier checks that a proof actually satisfies the requirement it
// claims to. The state machine only enforces binding and replay; content
// validity is delegated to this hook, and a production system must not run
// without one.
type ContentVerifier func(proof []byte, commitment kyc.Commitment, fingerprint kyc.Fingerprint) error

// Protocol composes the codecs and the ledger into the four operations:
// initialize, reset, verify-proof and revoke/close.
type Protocol struct {
	ledger ledger.Ledger

	// Verifier, when set, is consulted before a proof receipt is created.
	Verifier ContentVerifier
}

// New creates a protocol instance over the given ledger.
func New(l ledger.Ledger) *Protocol {
	return &Protocol{ledger: l}
}

// InitResult is the durable reference handed back to the caller after a
// successful Initialize.
type InitResult struct {
	Address ledger.Address
	Index   uint64
}

// Initialize creates a new identity for owner with the supplied commitment.
// The identity claims the next counter index N; afterwards the counter reads
// N+1. The counter advances before the record is created, so a failure
// between the two writes leaves an unclaimed index behind and the retry
// claims the next one. Two concurrent calls race on the same derived address
// and exactly one wins; the loser gets ErrAlreadyExists and must re-read the
// counter and re-derive, never resubmit the same address.
func (p *Protocol) Initialize(ctx context.Context, owner Owner, commitment kyc.Commitment) (InitResult, error) {
	if commitment == kyc.ZeroCommitment {
		return InitResult{}, fmt.Errorf("initialize: all-zero commitment: %w", ErrMalformedInput)
	}

	counterAddr := CounterAddress(owner)
	var count uint64
	counterExists := false
	data, err := p.ledger.GetAccount(ctx, counterAddr)
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		// First identity for this owner.
	case err != nil:
		return InitResult{}, fmt.Errorf("initialize: read counter %s: %w", counterAddr, err)
	default:
		counter, err := DecodeIdentityCounter(data)
		if err != nil {
			return InitResult{}, fmt.Errorf("initialize: counter %s: %w", counterAddr, err)
		}
		count = counter.Count
		counterExists = true
	}

	// Advance the counter first. A counter ahead of its records only leaves
	// an unclaimed index; a record ahead of its counter would send every
	// retry to the same occupied address. The create-or-update split covers
	// the lazily-created first counter.
	next := IdentityCounter{Owner: owner, Count: count + 1}
	if counterExists {
		err = p.ledger.UpdateAccount(ctx, counterAddr, next.Encode())
	} else {
		err = p.ledger.CreateAccount(ctx, counterAddr, next.Encode())
		if errors.Is(err, ledger.ErrAccountExists) {
			return InitResult{}, fmt.Errorf("initialize: counter %s claimed concurrently: %w", counterAddr, ErrAlreadyExists)
		}
	}
	if err != nil {
		return InitResult{}, fmt.Errorf("initialize: advance counter %s to %d: %w", counterAddr, count+1, err)
	}

	identityAddr := IdentityAddress(owner, count)
	record := IdentityRecord{
		Owner:      owner,
		Index:      count,
		Commitment: commitment,
	}
	if err := p.createRecord(ctx, "initialize", identityAddr, record); err != nil {
		return InitResult{}, err
	}
	return InitResult{Address: identityAddr, Index: count}, nil
}

// InitializeSingle creates the identity of the single-identity variant at the
// fixed owner-derived address. It is the idempotently retryable second phase
// of Reset: if a previous Reset destroyed the record and then failed, calling
// InitializeSingle alone recovers the owner into Active.
func (p *Protocol) InitializeSingle(ctx context.Context, owner Owner, commitment kyc.Commitment) (ledger.Address, error) {
	return p.initializeSingle(ctx, "initialize", owner, commitment)
}

func (p *Protocol) initializeSingle(ctx context.Context, op string, owner Owner, commitment kyc.Commitment) (ledger.Address, error) {
	if commitment == kyc.ZeroCommitment {
		return ledger.Address{}, fmt.Errorf("%s: all-zero commitment: %w", op, ErrMalformedInput)
	}
	addr := SingleIdentityAddress(owner)
	record := IdentityRecord{Owner: owner, Commitment: commitment}
	if err := p.createRecord(ctx, op, addr, record); err != nil {
		return ledger.Address{}, err
	}
	return addr, nil
}

// Reset destroys the single-variant identity of owner and recreates it with
// a fresh commitment. Two-phase: if the ledger becomes unavailable between
// destruction and re-creation the owner is left Absent, and a retry of
// InitializeSingle alone recovers.
func (p *Protocol) Reset(ctx context.Context, owner Owner, commitment kyc.Commitment) (ledger.Address, error) {
	addr := SingleIdentityAddress(owner)
	if err := p.Close(ctx, owner, addr); err != nil {
		return ledger.Address{}, fmt.Errorf("reset: %w", err)
	}
	return p.initializeSingle(ctx, "reset", owner, commitment)
}

func (p *Protocol) createRecord(ctx context.Context, op string, addr ledger.Address, record IdentityRecord) error {
	err := p.ledger.CreateAccount(ctx, addr, record.Encode())
	if errors.Is(err, ledger.ErrAccountExists) {
		return fmt.Errorf("%s: identity %s (owner %x, index %d) occupied: %w",
			op, addr, record.Owner[:4], record.Index, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("%s: create identity %s: %w", op, addr, err)
	}
	return nil
}

// VerifyProof checks binding and replay for a submitted proof and, on
// success, creates the one-time receipt and increments the identity's
// verification counter. Returns the receipt address: together with the
// ledger reference it proves to any third party that a verification
// occurred, without revealing document fields.
//
// Proof content validity is delegated to the Verifier hook; with no hook set
// only structural checks run.
func (p *Protocol) VerifyProof(ctx context.Context, identityAddr ledger.Address, proof []byte, fingerprint kyc.Fingerprint, index uint64) (ledger.Address, error) {
	if len(proof) == 0 {
		return ledger.Address{}, fmt.Errorf("verify: empty proof for identity %s: %w", identityAddr, ErrMalformedInput)
	}

	data, err := p.ledger.GetAccount(ctx, identityAddr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return ledger.Address{}, fmt.Errorf("verify: identity %s: %w", identityAddr, ErrNotFound)
	}
	if err != nil {
		return ledger.Address{}, fmt.Errorf("verify: read identity %s: %w", identityAddr, err)
	}
	record, err := DecodeIdentityRecord(data)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("verify: identity %s: %w", identityAddr, err)
	}

	if record.Revoked {
		return ledger.Address{}, fmt.Errorf("verify: identity %s (index %d): %w", identityAddr, record.Index, ErrRevoked)
	}
	if record.Index != index {
		return ledger.Address{}, fmt.Errorf("verify: identity %s stores index %d, caller supplied %d: %w",
			identityAddr, record.Index, index, ErrIndexMismatch)
	}

	if p.Verifier != nil {
		if err := p.Verifier(proof, record.Commitment, fingerprint); err != nil {
			return ledger.Address{}, fmt.Errorf("verify: identity %s: proof content: %w", identityAddr, err)
		}
	}

	// The receipt creation is the atomic replay guard: create-if-absent
	// makes this a single indivisible check-and-set.
	proofHash := kyc.ProofHash(proof)
	receiptAddr := ReceiptAddress(identityAddr, proofHash)
	receipt := ProofReceipt{Identity: identityAddr, ProofHash: proofHash}
	err = p.ledger.CreateAccount(ctx, receiptAddr, receipt.Encode())
	if errors.Is(err, ledger.ErrAccountExists) {
		return ledger.Address{}, fmt.Errorf("verify: receipt %s for identity %s: %w", receiptAddr, identityAddr, ErrReplayedProof)
	}
	if err != nil {
		return ledger.Address{}, fmt.Errorf("verify: create receipt %s: %w", receiptAddr, err)
	}

	// The counter bump is a compare-and-swap against the payload read above.
	// A concurrent revocation or verification surfaces as a conflict; re-read
	// and re-apply, so no write is lost and a revoked flag is never cleared.
	for {
		record.VerificationCount++
		err = p.ledger.SwapAccount(ctx, identityAddr, data, record.Encode())
		if err == nil {
			return receiptAddr, nil
		}
		if !errors.Is(err, ledger.ErrAccountConflict) {
			return ledger.Address{}, fmt.Errorf("verify: update identity %s: %w", identityAddr, err)
		}
		if data, err = p.ledger.GetAccount(ctx, identityAddr); err != nil {
			return ledger.Address{}, fmt.Errorf("verify: reread identity %s: %w", identityAddr, err)
		}
		if record, err = DecodeIdentityRecord(data); err != nil {
			return ledger.Address{}, fmt.Errorf("verify: identity %s: %w", identityAddr, err)
		}
	}
}

// Revoke permanently invalidates the identity. Terminal with respect to
// future VerifyProof calls; a usable state requires a brand-new Initialize at
// a new index, never reuse of the revoked one.
func (p *Protocol) Revoke(ctx context.Context, owner Owner, identityAddr ledger.Address) error {
	for {
		record, data, err := p.readOwned(ctx, "revoke", owner, identityAddr)
		if err != nil {
			return err
		}
		if record.Revoked {
			return fmt.Errorf("revoke: identity %s (index %d): %w", identityAddr, record.Index, ErrRevoked)
		}
		record.Revoked = true
		err = p.ledger.SwapAccount(ctx, identityAddr, data, record.Encode())
		if errors.Is(err, ledger.ErrAccountConflict) {
			// A verification bumped the counter in between; re-read so the
			// increment survives the revocation.
			continue
		}
		if err != nil {
			return fmt.Errorf("revoke: update identity %s: %w", identityAddr, err)
		}
		return nil
	}
}

// Close destroys the record entirely, reclaiming its storage. Only the
// single-identity Reset flow uses it; indexed identities are left Revoked so
// their index stays interpretable against historical proof receipts.
func (p *Protocol) Close(ctx context.Context, owner Owner, identityAddr ledger.Address) error {
	if _, _, err := p.readOwned(ctx, "close", owner, identityAddr); err != nil {
		return err
	}
	if err := p.ledger.CloseAccount(ctx, identityAddr); err != nil {
		return fmt.Errorf("close: identity %s: %w", identityAddr, err)
	}
	return nil
}

// GetIdentity reads and decodes the identity record at addr.
func (p *Protocol) GetIdentity(ctx context.Context, addr ledger.Address) (IdentityRecord, error) {
	data, err := p.ledger.GetAccount(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return IdentityRecord{}, fmt.Errorf("identity %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return IdentityRecord{}, fmt.Errorf("identity %s: %w", addr, err)
	}
	return DecodeIdentityRecord(data)
}

// GetCounter reads the per-owner counter; a missing counter reads as zero
// with ok=false.
func (p *Protocol) GetCounter(ctx context.Context, owner Owner) (uint64, bool, error) {
	data, err := p.ledger.GetAccount(ctx, CounterAddress(owner))
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("counter for owner %x: %w", owner[:4], err)
	}
	counter, err := DecodeIdentityCounter(data)
	if err != nil {
		return 0, false, err
	}
	return counter.Count, true, nil
}

// GetReceipt reads and decodes the proof receipt at addr.
func (p *Protocol) GetReceipt(ctx context.Context, addr ledger.Address) (ProofReceipt, error) {
	data, err := p.ledger.GetAccount(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return ProofReceipt{}, fmt.Errorf("receipt %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return ProofReceipt{}, fmt.Errorf("receipt %s: %w", addr, err)
	}
	return DecodeProofReceipt(data)
}

// readOwned loads and owner-checks an identity record, returning the raw
// payload alongside so callers can write back with a compare-and-swap.
func (p *Protocol) readOwned(ctx context.Context, op string, owner Owner, identityAddr ledger.Address) (IdentityRecord, []byte, error) {
	data, err := p.ledger.GetAccount(ctx, identityAddr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return IdentityRecord{}, nil, fmt.Errorf("%s: identity %s: %w", op, identityAddr, ErrNotFound)
	}
	if err != nil {
		return IdentityRecord{}, nil, fmt.Errorf("%s: read identity %s: %w", op, identityAddr, err)
	}
	record, err := DecodeIdentityRecord(data)
	if err != nil {
		return IdentityRecord{}, nil, fmt.Errorf("%s: identity %s: %w", op, identityAddr, err)
	}
	if record.Owner != owner {
		return IdentityRecord{}, nil, fmt.Errorf("%s: identity %s is owned by %x, caller is %x: %w",
			op, identityAddr, record.Owner[:4], owner[:4], ErrUnauthorized)
	}
	return record, data, nil
}
