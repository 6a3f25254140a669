package protocol

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minkyc/minkyc-go/internal/kyc"
	"github.com/minkyc/minkyc-go/internal/ledger"
)

func newTestProtocol() *Protocol {
	return New(ledger.NewMemoryLedger())
}

func testOwner(b byte) Owner {
	var o Owner
	for i := range o {
		o[i] = b
	}
	return o
}

func testCommitment(b byte) kyc.Commitment {
	var cm kyc.Commitment
	for i := range cm {
		cm[i] = b
	}
	return cm
}

// buildProof produces a proof and fingerprint for a request with the given
// timestamp, so tests can mint distinct proofs cheaply.
func buildProof(t *testing.T, cm kyc.Commitment, timestamp int64) ([]byte, kyc.Fingerprint) {
	t.Helper()
	codec := kyc.MimcCodec{}
	req := kyc.Request{Over18: true, Timestamp: timestamp}
	secret := make(kyc.Secret, kyc.SecretSize)
	for i := range secret {
		secret[i] = 0x42
	}
	proof, err := codec.BuildProof(cm, req, secret)
	require.NoError(t, err)
	fp, err := codec.RequirementFingerprint(req)
	require.NoError(t, err)
	return proof, fp
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(1)

	t.Run("first identity claims index 0", func(t *testing.T) {
		res, err := p.Initialize(ctx, owner, testCommitment(0xaa))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), res.Index)
		assert.Equal(t, IdentityAddress(owner, 0), res.Address)

		count, exists, err := p.GetCounter(ctx, owner)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, uint64(1), count)
	})

	t.Run("second identity claims index 1", func(t *testing.T) {
		res, err := p.Initialize(ctx, owner, testCommitment(0xbb))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Index)
		assert.NotEqual(t, IdentityAddress(owner, 0), res.Address)

		count, _, err := p.GetCounter(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)
	})

	t.Run("records are independent", func(t *testing.T) {
		rec0, err := p.GetIdentity(ctx, IdentityAddress(owner, 0))
		require.NoError(t, err)
		rec1, err := p.GetIdentity(ctx, IdentityAddress(owner, 1))
		require.NoError(t, err)
		assert.Equal(t, testCommitment(0xaa), rec0.Commitment)
		assert.Equal(t, testCommitment(0xbb), rec1.Commitment)
		assert.Equal(t, uint64(0), rec0.Index)
		assert.Equal(t, uint64(1), rec1.Index)
	})

	t.Run("all-zero commitment rejected", func(t *testing.T) {
		_, err := p.Initialize(ctx, owner, kyc.ZeroCommitment)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})

	t.Run("occupied derived address is a consistency fault", func(t *testing.T) {
		// Seed a record where the counter says the next identity goes.
		other := testOwner(9)
		stray := IdentityRecord{Owner: other, Index: 0, Commitment: testCommitment(1)}
		require.NoError(t, p.ledger.CreateAccount(ctx, IdentityAddress(other, 0), stray.Encode()))

		_, err := p.Initialize(ctx, other, testCommitment(2))
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})
}

func TestVerifyProof(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(2)
	cm := testCommitment(0xcc)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)
	proof, fp := buildProof(t, cm, 1000)

	t.Run("first submission succeeds", func(t *testing.T) {
		receiptAddr, err := p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
		require.NoError(t, err)

		receipt, err := p.GetReceipt(ctx, receiptAddr)
		require.NoError(t, err)
		assert.Equal(t, res.Address, receipt.Identity)
		assert.Equal(t, kyc.ProofHash(proof), receipt.ProofHash)

		rec, err := p.GetIdentity(ctx, res.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rec.VerificationCount)
	})

	t.Run("byte-identical proof is replayed", func(t *testing.T) {
		_, err := p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
		assert.ErrorIs(t, err, ErrReplayedProof)

		// The failed replay must not bump the verification counter.
		rec, err := p.GetIdentity(ctx, res.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rec.VerificationCount)
	})

	t.Run("different request verifies independently", func(t *testing.T) {
		proof2, fp2 := buildProof(t, cm, 2000)
		_, err := p.VerifyProof(ctx, res.Address, proof2, fp2, res.Index)
		require.NoError(t, err)

		rec, err := p.GetIdentity(ctx, res.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), rec.VerificationCount)
	})

	t.Run("stale index rejected", func(t *testing.T) {
		res2, err := p.Initialize(ctx, owner, testCommitment(0xcd))
		require.NoError(t, err)
		require.Equal(t, uint64(1), res2.Index)

		proof3, fp3 := buildProof(t, cm, 3000)
		_, err = p.VerifyProof(ctx, res2.Address, proof3, fp3, res2.Index-1)
		assert.ErrorIs(t, err, ErrIndexMismatch)
	})

	t.Run("unknown identity", func(t *testing.T) {
		proof4, fp4 := buildProof(t, cm, 4000)
		_, err := p.VerifyProof(ctx, IdentityAddress(owner, 99), proof4, fp4, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty proof rejected", func(t *testing.T) {
		_, err := p.VerifyProof(ctx, res.Address, nil, fp, res.Index)
		assert.ErrorIs(t, err, ErrMalformedInput)
	})
}

func TestVerifyProofContentHook(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(3)
	cm := testCommitment(0xdd)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)

	var sawCommitment kyc.Commitment
	p.Verifier = func(proof []byte, commitment kyc.Commitment, fingerprint kyc.Fingerprint) error {
		sawCommitment = commitment
		return assert.AnError
	}

	proof, fp := buildProof(t, cm, 5000)
	_, err = p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, cm, sawCommitment)

	// A rejected proof must not leave a receipt behind.
	_, err = p.GetReceipt(ctx, ReceiptAddress(res.Address, kyc.ProofHash(proof)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(4)
	cm := testCommitment(0xee)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)

	t.Run("only the owner may revoke", func(t *testing.T) {
		err := p.Revoke(ctx, testOwner(5), res.Address)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("revoke is terminal for verification", func(t *testing.T) {
		require.NoError(t, p.Revoke(ctx, owner, res.Address))

		proof, fp := buildProof(t, cm, 6000)
		_, err := p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
		assert.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("double revoke rejected", func(t *testing.T) {
		err := p.Revoke(ctx, owner, res.Address)
		assert.ErrorIs(t, err, ErrRevoked)
	})

	t.Run("missing record", func(t *testing.T) {
		err := p.Revoke(ctx, owner, IdentityAddress(owner, 42))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSingleIdentityVariant(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(6)

	t.Run("initialize at the fixed address", func(t *testing.T) {
		addr, err := p.InitializeSingle(ctx, owner, testCommitment(0x11))
		require.NoError(t, err)
		assert.Equal(t, SingleIdentityAddress(owner), addr)

		// The fixed address is distinct from every indexed address.
		assert.NotEqual(t, IdentityAddress(owner, 0), addr)
	})

	t.Run("reset destroys and recreates", func(t *testing.T) {
		addr, err := p.Reset(ctx, owner, testCommitment(0x22))
		require.NoError(t, err)

		rec, err := p.GetIdentity(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, testCommitment(0x22), rec.Commitment)
		assert.False(t, rec.Revoked)
		assert.Equal(t, uint64(0), rec.VerificationCount)
	})

	t.Run("reset does not touch the counter", func(t *testing.T) {
		_, exists, err := p.GetCounter(ctx, owner)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("close then retry initialize recovers", func(t *testing.T) {
		// Simulate the ledger dying between the two phases of Reset.
		addr := SingleIdentityAddress(owner)
		require.NoError(t, p.Close(ctx, owner, addr))

		_, err := p.GetIdentity(ctx, addr)
		assert.ErrorIs(t, err, ErrNotFound)

		recovered, err := p.InitializeSingle(ctx, owner, testCommitment(0x33))
		require.NoError(t, err)
		assert.Equal(t, addr, recovered)
	})

	t.Run("close is owner-only", func(t *testing.T) {
		err := p.Close(ctx, testOwner(7), SingleIdentityAddress(owner))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestConcurrentVerifySameProof(t *testing.T) {
	// Two concurrent submissions of the same proof race to create the same
	// receipt address; exactly one wins and the loser sees ReplayedProof.
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(8)
	cm := testCommitment(0x44)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)
	proof, fp := buildProof(t, cm, 7000)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrReplayedProof)
		}
	}
	assert.Equal(t, 1, winners)
}

// swapHookLedger runs a callback just before each compare-and-swap, so tests
// can interleave a competing write into the window between a read and its
// write-back.
type swapHookLedger struct {
	ledger.Ledger
	beforeSwap func()
}

func (h *swapHookLedger) SwapAccount(ctx context.Context, addr ledger.Address, old, new []byte) error {
	if h.beforeSwap != nil {
		h.beforeSwap()
	}
	return h.Ledger.SwapAccount(ctx, addr, old, new)
}

func TestVerifyProofPreservesConcurrentRevoke(t *testing.T) {
	ctx := context.Background()
	hl := &swapHookLedger{Ledger: ledger.NewMemoryLedger()}
	p := New(hl)
	owner := testOwner(13)
	cm := testCommitment(0x70)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)

	// The revocation lands between VerifyProof's record read and its counter
	// write-back. The write-back must yield, not clear the flag.
	fired := false
	hl.beforeSwap = func() {
		if fired {
			return
		}
		fired = true
		require.NoError(t, p.Revoke(ctx, owner, res.Address))
	}

	proof, fp := buildProof(t, cm, 10000)
	_, err = p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
	require.NoError(t, err)

	rec, err := p.GetIdentity(ctx, res.Address)
	require.NoError(t, err)
	assert.True(t, rec.Revoked, "write-back cleared the revoked flag")
	assert.Equal(t, uint64(1), rec.VerificationCount)

	// The revocation stays terminal for later proofs.
	proof2, fp2 := buildProof(t, cm, 10500)
	_, err = p.VerifyProof(ctx, res.Address, proof2, fp2, res.Index)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestConcurrentVerifyDistinctProofs(t *testing.T) {
	// Concurrent verifications of distinct proofs must all land; no counter
	// increment may be lost to a racing write-back.
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(14)
	cm := testCommitment(0x71)

	res, err := p.Initialize(ctx, owner, cm)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		proof, fp := buildProof(t, cm, int64(11000+i))
		wg.Add(1)
		go func(i int, proof []byte, fp kyc.Fingerprint) {
			defer wg.Done()
			_, errs[i] = p.VerifyProof(ctx, res.Address, proof, fp, res.Index)
		}(i, proof, fp)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "proof %d", i)
	}
	rec, err := p.GetIdentity(ctx, res.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), rec.VerificationCount)
}

var errLedgerDown = errors.New("ledger unavailable")

// flakyLedger fails a fixed number of writes to one address, simulating the
// ledger dropping out mid-operation.
type flakyLedger struct {
	ledger.Ledger
	failAddr ledger.Address
	failures int
}

func (f *flakyLedger) CreateAccount(ctx context.Context, addr ledger.Address, data []byte) error {
	if f.failures > 0 && addr == f.failAddr {
		f.failures--
		return errLedgerDown
	}
	return f.Ledger.CreateAccount(ctx, addr, data)
}

func (f *flakyLedger) UpdateAccount(ctx context.Context, addr ledger.Address, data []byte) error {
	if f.failures > 0 && addr == f.failAddr {
		f.failures--
		return errLedgerDown
	}
	return f.Ledger.UpdateAccount(ctx, addr, data)
}

func TestInitializeRetryAfterPartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("counter write fails before anything lands", func(t *testing.T) {
		owner := testOwner(11)
		fl := &flakyLedger{Ledger: ledger.NewMemoryLedger(), failAddr: CounterAddress(owner), failures: 1}
		p := New(fl)

		_, err := p.Initialize(ctx, owner, testCommitment(0x60))
		require.ErrorIs(t, err, errLedgerDown)

		// Nothing was created; the retry claims index 0 as usual.
		_, err = p.GetIdentity(ctx, IdentityAddress(owner, 0))
		require.ErrorIs(t, err, ErrNotFound)
		res, err := p.Initialize(ctx, owner, testCommitment(0x60))
		require.NoError(t, err)
		assert.Equal(t, uint64(0), res.Index)
	})

	t.Run("record write fails after the counter advanced", func(t *testing.T) {
		owner := testOwner(12)
		fl := &flakyLedger{Ledger: ledger.NewMemoryLedger(), failAddr: IdentityAddress(owner, 0), failures: 1}
		p := New(fl)

		_, err := p.Initialize(ctx, owner, testCommitment(0x61))
		require.ErrorIs(t, err, errLedgerDown)

		// Index 0 stays an unclaimed gap; the retry succeeds at index 1.
		res, err := p.Initialize(ctx, owner, testCommitment(0x61))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Index)
		_, err = p.GetIdentity(ctx, IdentityAddress(owner, 0))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestResetErrorContext(t *testing.T) {
	// Both phases of a failed Reset report the reset operation.
	ctx := context.Background()
	owner := testOwner(15)
	fl := &flakyLedger{Ledger: ledger.NewMemoryLedger()}
	p := New(fl)

	_, err := p.InitializeSingle(ctx, owner, testCommitment(0x12))
	require.NoError(t, err)

	fl.failAddr = SingleIdentityAddress(owner)
	fl.failures = 1
	_, err = p.Reset(ctx, owner, testCommitment(0x13))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reset:")
}

// TestFullScenario walks the end-to-end flow: two identities, one
// verification, a replay, a revocation, and the second identity unaffected.
func TestFullScenario(t *testing.T) {
	ctx := context.Background()
	p := newTestProtocol()
	owner := testOwner(10)
	cm0 := testCommitment(0x50)
	cm1 := testCommitment(0x51)

	// Initialize twice: indices 0 and 1, counter ends at 2.
	res0, err := p.Initialize(ctx, owner, cm0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res0.Index)

	res1, err := p.Initialize(ctx, owner, cm1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res1.Index)
	require.NotEqual(t, res0.Address, res1.Address)

	count, _, err := p.GetCounter(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	// Fresh proof against identity 0 succeeds once.
	proof, fp := buildProof(t, cm0, 8000)
	_, err = p.VerifyProof(ctx, res0.Address, proof, fp, 0)
	require.NoError(t, err)
	rec, err := p.GetIdentity(ctx, res0.Address)
	require.NoError(t, err)
	require.Equal(t, uint64(1), rec.VerificationCount)

	// The identical call replays.
	_, err = p.VerifyProof(ctx, res0.Address, proof, fp, 0)
	require.ErrorIs(t, err, ErrReplayedProof)

	// Revoke identity 0; verification there now fails, identity 1 works.
	require.NoError(t, p.Revoke(ctx, owner, res0.Address))
	proof2, fp2 := buildProof(t, cm0, 9000)
	_, err = p.VerifyProof(ctx, res0.Address, proof2, fp2, 0)
	require.ErrorIs(t, err, ErrRevoked)

	proof3, fp3 := buildProof(t, cm1, 9500)
	_, err = p.VerifyProof(ctx, res1.Address, proof3, fp3, 1)
	require.NoError(t, err)
}
