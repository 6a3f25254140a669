// request.go - Relying-party verification request and its canonical encoding.
//
// A Request states the conditions a prover must satisfy (over-18, country
// exclusions, name match). Its canonical encoding is part of the protocol's
// hashing contract: the requirement fingerprint and the proof both bind to it.

package kyc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Request is authored by the relying party and consumed read-only by the
// prover. CountryNot is an ordered sequence; reordering it changes the
// canonical encoding and therefore the fingerprint.
type Request struct {
	Over18     bool     `json:"over18"`
	CountryNot []string `json:"countryNot"`
	NameMatch  bool     `json:"nameMatch"`
	Timestamp  int64    `json:"timestamp"` // unix milliseconds, supplied by the relying party
}

// Validate checks structural well-formedness.
func (r Request) Validate() error {
	if r.Timestamp <= 0 {
		return fmt.Errorf("request: timestamp %d must be positive", r.Timestamp)
	}
	for _, c := range r.CountryNot {
		if len(c) != 3 {
			return fmt.Errorf("request: countryNot entry %q is not an alpha-3 code", c)
		}
	}
	return nil
}

// Canonical returns the canonical encoding: compact JSON with keys sorted
// ascending byte-wise. CountryNot keeps its given order inside the array.
func (r Request) Canonical() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	countries := r.CountryNot
	if countries == nil {
		countries = []string{}
	}
	m := map[string]interface{}{
		"over18":     r.Over18,
		"countryNot": countries,
		"nameMatch":  r.NameMatch,
		"timestamp":  r.Timestamp,
	}
	return json.Marshal(m)
}

// ParseRequest decodes a request from JSON, rejecting unknown fields.
func ParseRequest(data []byte) (Request, error) {
	var r Request
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return Request{}, fmt.Errorf("request: decode: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Request{}, err
	}
	return r, nil
}
