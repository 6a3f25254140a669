package wallet

import (
	"path/filepath"
	"testing"
)

func TestKeypairRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.key")

	k1, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("LoadOrGenerate: %v", err)
	}
	k2, err := LoadOrGenerate(path)
	if err != nil {
		t.Fatalf("second LoadOrGenerate: %v", err)
	}
	if k1.Owner() != k2.Owner() {
		t.Error("reloaded keypair has a different owner identity")
	}
	if k1.Owner() == ([32]byte{}) {
		t.Error("owner identity is all zeros")
	}
}

func TestDistinctKeypairs(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	if a.Owner() == b.Owner() {
		t.Error("two generated keypairs share an owner identity")
	}
}
