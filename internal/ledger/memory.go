// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

var errTxDone = errors.New("transaction already committed or rolled back")

// MemoryBackend keeps accounts in a map. State is lost when the process exits.
type MemoryBackend struct {
	mu       sync.RWMutex
	accounts map[types.Address]Account
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{accounts: make(map[types.Address]Account)}
}

// Begin starts a buffered transaction; writes become visible on Commit.
func (m *MemoryBackend) Begin(ctx context.Context) (BackendTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryTx{
		backend: m,
		puts:    make(map[types.Address]Account),
		deletes: make(map[types.Address]bool),
	}, nil
}

// Get reads a committed account.
func (m *MemoryBackend) Get(ctx context.Context, addr types.Address) (Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[addr]
	return acct, ok, nil
}

// Len returns the number of committed accounts.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

type memoryTx struct {
	backend *MemoryBackend
	puts    map[types.Address]Account
	deletes map[types.Address]bool
	done    bool
}

func (t *memoryTx) Get(addr types.Address) (Account, bool, error) {
	if t.done {
		return Account{}, false, errTxDone
	}
	if t.deletes[addr] {
		return Account{}, false, nil
	}
	if acct, ok := t.puts[addr]; ok {
		return acct, true, nil
	}
	t.backend.mu.RLock()
	defer t.backend.mu.RUnlock()
	acct, ok := t.backend.accounts[addr]
	return acct, ok, nil
}

func (t *memoryTx) Put(acct Account) error {
	if t.done {
		return errTxDone
	}
	delete(t.deletes, acct.Address)
	t.puts[acct.Address] = acct
	return nil
}

func (t *memoryTx) Delete(addr types.Address) error {
	if t.done {
		return errTxDone
	}
	delete(t.puts, addr)
	t.deletes[addr] = true
	return nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	for addr := range t.deletes {
		delete(t.backend.accounts, addr)
	}
	for addr, acct := range t.puts {
		t.backend.accounts[addr] = acct
	}
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return nil
}

// Compile-time interface check
var _ Backend = (*MemoryBackend)(nil)
