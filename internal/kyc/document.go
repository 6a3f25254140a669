// document.go - Passport document record and its canonical encoding.
//
// A Document mirrors the NFC-readable fields of an ICAO passport. The struct
// is closed: decoding rejects unknown fields rather than silently ignoring
// them, so a drifting producer fails loudly instead of committing to data the
// verifier never sees.

package kyc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Document holds the fields of a government identity document.
type Document struct {
	DocumentType   string `json:"documentType"`
	IssuingCountry string `json:"issuingCountry"` // ISO 3166-1 alpha-3
	PassportNumber string `json:"passportNumber"`
	Surname        string `json:"surname"`
	GivenNames     string `json:"givenNames"`
	Nationality    string `json:"nationality"` // ISO 3166-1 alpha-3
	DateOfBirth    string `json:"dateOfBirth"` // YYYY-MM-DD
	Sex            string `json:"sex"`         // M, F or X
	ExpiryDate     string `json:"expiryDate"`  // YYYY-MM-DD
}

// Validate checks that every field is present and well-formed.
func (d Document) Validate() error {
	if d.DocumentType == "" {
		return errors.New("document: documentType is required")
	}
	if len(d.IssuingCountry) != 3 {
		return fmt.Errorf("document: issuingCountry %q is not an alpha-3 code", d.IssuingCountry)
	}
	if len(d.Nationality) != 3 {
		return fmt.Errorf("document: nationality %q is not an alpha-3 code", d.Nationality)
	}
	if d.PassportNumber == "" {
		return errors.New("document: passportNumber is required")
	}
	if d.Surname == "" || d.GivenNames == "" {
		return errors.New("document: surname and givenNames are required")
	}
	switch d.Sex {
	case "M", "F", "X":
	default:
		return fmt.Errorf("document: sex %q must be M, F or X", d.Sex)
	}
	for _, f := range []struct{ name, val string }{
		{"dateOfBirth", d.DateOfBirth},
		{"expiryDate", d.ExpiryDate},
	} {
		if _, err := time.Parse("2006-01-02", f.val); err != nil {
			return fmt.Errorf("document: %s %q is not a YYYY-MM-DD date", f.name, f.val)
		}
	}
	return nil
}

// Canonical returns the byte-exact canonical encoding of the document:
// compact JSON with keys sorted ascending byte-wise. Field insertion order
// never influences the output.
func (d Document) Canonical() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	// encoding/json sorts map keys, which is exactly the canonical order.
	m := map[string]string{
		"documentType":   d.DocumentType,
		"issuingCountry": d.IssuingCountry,
		"passportNumber": d.PassportNumber,
		"surname":        d.Surname,
		"givenNames":     d.GivenNames,
		"nationality":    d.Nationality,
		"dateOfBirth":    d.DateOfBirth,
		"sex":            d.Sex,
		"expiryDate":     d.ExpiryDate,
	}
	return json.Marshal(m)
}

// ParseDocument decodes a document from JSON, rejecting unknown fields.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Document{}, fmt.Errorf("document: decode: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Document{}, err
	}
	return d, nil
}
