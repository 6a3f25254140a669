// memory.go - In-memory ledger backend.
//
// A mutex-guarded account map. The deadlock-detecting mutex trades a little
// overhead for loud failures when a caller ever re-enters the ledger while
// holding it.

package ledger

import (
	"bytes"
	"context"

	"github.com/sasha-s/go-deadlock"
)

// MemoryLedger stores accounts in process memory. Safe for concurrent use.
type MemoryLedger struct {
	mutex deadlock.Mutex
	data  map[Address][]byte
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{data: make(map[Address][]byte)}
}

// CreateAccount implements Ledger.
func (l *MemoryLedger) CreateAccount(_ context.Context, addr Address, data []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; ok {
		return ErrAccountExists
	}
	l.data[addr] = append([]byte(nil), data...)
	return nil
}

// GetAccount implements Ledger.
func (l *MemoryLedger) GetAccount(_ context.Context, addr Address) ([]byte, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	data, ok := l.data[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return append([]byte(nil), data...), nil
}

// UpdateAccount implements Ledger.
func (l *MemoryLedger) UpdateAccount(_ context.Context, addr Address, data []byte) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; !ok {
		return ErrAccountNotFound
	}
	l.data[addr] = append([]byte(nil), data...)
	return nil
}

// SwapAccount implements Ledger.
func (l *MemoryLedger) SwapAccount(_ context.Context, addr Address, old, new []byte) error {
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
	return nil
}

// CloseAccount implements Ledger.
func (l *MemoryLedger) CloseAccount(_ context.Context, addr Address) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.data[addr]; !ok {
		return ErrAccountNotFound
	}
	delete(l.data, addr)
	return nil
}
