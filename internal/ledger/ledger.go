// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package ledger is the host ledger the vault runs against. It owns account
// balances, the minimum persistence floor, and transactional execution:
// every Execute call either commits all of its transfers or none of them.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Ledger executes signed, atomic transactions against a Backend.
type Ledger struct {
	backend Backend
	logger  *slog.Logger

	// execMu serializes transactions so two calls touching the same account
	// can never both observe its pre-call state.
	execMu sync.Mutex

	paramsMu sync.RWMutex
	params   Params
}

// Option is a functional option for configuring the Ledger
type Option func(*Ledger) error

// New creates a ledger over the given backend.
func New(backend Backend, opts ...Option) (*Ledger, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}

	l := &Ledger{
		backend: backend,
		logger:  slog.New(slog.DiscardHandler),
		params:  DefaultParams(),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// WithParams sets the rent parameters
func WithParams(p Params) Option {
	return func(l *Ledger) error {
		if err := p.Validate(); err != nil {
			return err
		}
		l.params = p
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) error {
		if logger != nil {
			l.logger = logger
		}
		return nil
	}
}

// Params returns the current rent parameters.
func (l *Ledger) Params() Params {
	l.paramsMu.RLock()
	defer l.paramsMu.RUnlock()
	return l.params
}

// SetParams replaces the rent parameters. Transactions already running keep
// the parameters they started with.
func (l *Ledger) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	l.paramsMu.Lock()
	old := l.params
	l.params = p
	l.paramsMu.Unlock()

	if old != p {
		l.logger.Info("ledger parameters updated",
			"floor", p.MinimumBalance(0),
			"previous_floor", old.MinimumBalance(0))
	}
	return nil
}

// MinimumBalance returns the minimum persistence floor for an account with
// the given data size under the current parameters.
func (l *Ledger) MinimumBalance(space int) uint64 {
	return l.Params().MinimumBalance(space)
}

// Account returns the committed state of addr.
func (l *Ledger) Account(ctx context.Context, addr types.Address) (Account, bool, error) {
	acct, ok, err := l.backend.Get(ctx, addr)
	if err != nil {
		return Account{}, false, fmt.Errorf("failed to read account %s: %w", addr, err)
	}
	return acct, ok, nil
}

// Balance returns the committed balance of addr (zero if it does not exist).
func (l *Ledger) Balance(ctx context.Context, addr types.Address) (uint64, error) {
	acct, _, err := l.Account(ctx, addr)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Execute verifies req, then runs fn inside one atomic transaction. If fn or
// any commit-time rule fails, no change is applied.
func (l *Ledger) Execute(ctx context.Context, req Request, fn func(Tx) error) error {
	signers, err := req.verify()
	if err != nil {
		return err
	}
	return l.run(ctx, signers, func(t *txn) error { return fn(t) })
}

// Airdrop credits amount to addr, creating a system account if needed. It is
// a development faucet and bypasses signatures. The resulting balance must
// reach the floor.
func (l *Ledger) Airdrop(ctx context.Context, addr types.Address, amount uint64) error {
	err := l.run(ctx, nil, func(t *txn) error {
		if err := t.credit(addr, amount); err != nil {
			return err
		}
		acct, err := t.load(addr)
		if err != nil {
			return err
		}
		if floor := t.params.MinimumBalance(acct.Space); acct.Balance < floor {
			return fmt.Errorf("%w: %s would hold %d (floor %d)", ErrBelowPersistenceFloor, addr, acct.Balance, floor)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("airdrop to %s failed: %w", addr, err)
	}
	l.logger.Debug("airdrop", "address", addr.String(), "amount", amount)
	return nil
}

// Close closes the backend.
func (l *Ledger) Close() error {
	return l.backend.Close()
}

func (l *Ledger) run(ctx context.Context, signers map[types.Address]bool, fn func(*txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.execMu.Lock()
	defer l.execMu.Unlock()

	btx, err := l.backend.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin ledger transaction: %w", err)
	}

	t := newTxn(btx, l.Params(), signers)
	if err := fn(t); err != nil {
		_ = btx.Rollback()
		return err
	}

	written, err := t.flush()
	if err != nil {
		_ = btx.Rollback()
		return err
	}
	if err := btx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger transaction: %w", err)
	}

	l.logger.Debug("ledger commit", "accounts", written)
	return nil
}
