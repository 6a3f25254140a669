// file.go - JSON-file ledger backend for local single-user runs.
//
// The full account map is persisted to a single JSON file after every
// mutation, so successive CLI invocations observe each other's state.
// Not suitable for concurrent processes; the shared deployment uses the
// MongoDB backend instead.

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sasha-s/go-deadlock"
)

// FileLedger is a MemoryLedger persisted to disk.
type FileLedger struct {
	mutex deadlock.Mutex
	path  string
	data  map[Address][]byte
}

// fileLedgerState is the on-disk shape: hex address -> base64 account data.
type fileLedgerState struct {
	Accounts map[string][]byte `json:"accounts"`
}

// OpenFileLedger loads the ledger from path, creating an empty one if the
// file does not exist. Returns an error on an unreadable or malformed file
// rather than silently starting empty.
func OpenFileLedger(path string) (*FileLedger, error) {
	l := &FileLedger{path: path, data: make(map[Address][]byte)}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger file: %w", err)
	}
	var state fileLedgerState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("ledger file %s: %w", path, err)
	}
	for hexAddr, data := range state.Accounts {
		addr, err := ParseAddress(hexAddr)
		if err != nil {
			return nil, fmt.Errorf("ledger file %s: %w", path, err)
		}
		l.data[addr] = data
	}
	return l, nil
}

// save writes the current state to disk. Caller holds the mutex.
func (l *FileLedger) save() error {
	state := fileLedgerState{Accounts: make(map[string][]byte, len(l.data))}
	for addr, data := range l.data {
		state.Accounts[addr.String()] = data
	}
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, b, 0644)
}

// CreateAccount implements Ledger.
func (l *FileLedger) CreateAccount(_ context.Context, addr Address, data []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; ok {
		return ErrAccountExists
	}
	l.data[addr] = append([]byte(nil), data...)
	return l.save()
}

// GetAccount implements Ledger.
func (l *FileLedger) GetAccount(_ context.Context, addr Address) ([]byte, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	data, ok := l.data[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return append([]byte(nil), data...), nil
}

// UpdateAccount implements Ledger.
func (l *FileLedger) UpdateAccount(_ context.Context, addr Address, data []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; !ok {
		return ErrAccountNotFound
	}
	l.data[addr] = append([]byte(nil), data...)
	return l.save()
}

// SwapAccount implements Ledger.
func (l *FileLedger) SwapAccount(_ context.Context, addr Address, old, new []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	cur, ok := l.data[addr]
	if !ok {
		return ErrAccountNotFound
	}
	if !bytes.Equal(cur, old) {
		return ErrAccountConflict
	}
	l.data[addr] = append([]byte(nil), new...)
	return l.save()
}

// CloseAccount implements Ledger.
func (l *FileLedger) CloseAccount(_ context.Context, addr Address) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; !ok {
		return ErrAccountNotFound
	}
	delete(l.data, addr)
	return l.save()
}
