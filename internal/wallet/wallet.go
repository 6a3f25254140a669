// Package wallet manages the local owner keypair.
//
// The owner identity on the ledger is the 32-byte x-only form of a secp256k1
// public key. Transaction signing and submission transport are outside the
// protocol; the keypair here only supplies the owner identity and pays the
// role of the wallet a real deployment would plug in.
package wallet

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Keypair wraps a secp256k1 private key.
type Keypair struct {
	priv *btcec.PrivateKey
}

// Generate creates a fresh keypair.
func Generate() (*Keypair, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: generate: %w", err)
	}
	return &Keypair{priv: priv}, nil
}

// Owner returns the 32-byte x-only public key used as the on-ledger owner
// identity.
func (k *Keypair) Owner() [32]byte {
	var owner [32]byte
	copy(owner[:], schnorr.SerializePubKey(k.priv.PubKey()))
	return owner
}

// Save writes the private key hex to path with owner-only permissions.
func (k *Keypair) Save(path string) error {
	encoded := hex.EncodeToString(k.priv.Serialize())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return fmt.Errorf("wallet: save: %w", err)
	}
	return nil
}

// Load reads a keypair previously written by Save.
func Load(path string) (*Keypair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wallet: load: %w", err)
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("wallet: load %s: %w", path, err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("wallet: load %s: key is %d bytes, want 32", path, len(b))
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return &Keypair{priv: priv}, nil
}

// LoadOrGenerate loads the keypair at path, generating and persisting a new
// one if the file does not exist.
func LoadOrGenerate(path string) (*Keypair, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		k, err := Generate()
		if err != nil {
			return nil, err
		}
		if err := k.Save(path); err != nil {
			return nil, err
		}
		return k, nil
	}
	return Load(path)
}
