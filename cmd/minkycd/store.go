// store.go - Local persisted state: passport.json, .secret and request.json.
//
// The passport file holds the document fields plus a _meta block
// {identityIndex, identityAddress} once an identity exists. The secret file
// is an opaque hex blob. Both are required protocol inputs; loading fails
// fast when they are absent instead of defaulting.

package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/minkyc/minkyc-go/internal/kyc"
)

// passportMeta is the identity reference attached to the passport file after
// a successful initialize.
type passportMeta struct {
	IdentityIndex   uint64 `json:"identityIndex"`
	IdentityAddress string `json:"identityAddress"`
}

// savePassport writes the document and optional meta to path.
func savePassport(path string, doc kyc.Document, meta *passportMeta) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	if meta != nil {
		m["_meta"] = meta
	}
	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0600)
}

// loadPassport reads the document and meta from path. A missing file is a
// hard error: the passport is a required input.
func loadPassport(path string) (kyc.Document, *passportMeta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kyc.Document{}, nil, fmt.Errorf("passport data not found at %s, run \"minkycd init\" first: %w", path, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return kyc.Document{}, nil, fmt.Errorf("passport file %s: %w", path, err)
	}

	var meta *passportMeta
	if rawMeta, ok := m["_meta"]; ok {
		meta = &passportMeta{}
		if err := json.Unmarshal(rawMeta, meta); err != nil {
			return kyc.Document{}, nil, fmt.Errorf("passport file %s: _meta: %w", path, err)
		}
		delete(m, "_meta")
	}

	stripped, err := json.Marshal(m)
	if err != nil {
		return kyc.Document{}, nil, err
	}
	doc, err := kyc.ParseDocument(stripped)
	if err != nil {
		return kyc.Document{}, nil, fmt.Errorf("passport file %s: %w", path, err)
	}
	return doc, meta, nil
}

// saveSecret persists the secret hex-encoded with owner-only permissions.
func saveSecret(path string, secret kyc.Secret) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(secret)+"\n"), 0600)
}

// loadSecret reads a previously persisted secret; missing is a hard error.
func loadSecret(path string) (kyc.Secret, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret not found at %s, run \"minkycd init\" first: %w", path, err)
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("secret file %s: %w", path, err)
	}
	secret := kyc.Secret(b)
	if err := secret.Validate(); err != nil {
		return nil, err
	}
	return secret, nil
}

// saveRequest writes the relying-party request to path.
func saveRequest(path string, req kyc.Request) error {
	out, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// loadRequest reads and validates the relying-party request.
func loadRequest(path string) (kyc.Request, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return kyc.Request{}, fmt.Errorf("request not found at %s, run \"minkycd request\" first: %w", path, err)
	}
	req, err := kyc.ParseRequest(raw)
	if err != nil {
		return kyc.Request{}, fmt.Errorf("request file %s: %w", path, err)
	}
	return req, nil
}
