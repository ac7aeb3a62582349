// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package sqlite provides a durable SQLite ledger backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	_ "modernc.org/sqlite"

	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/ledger/sqlite/migrations"
)

// ErrBalanceTooLarge indicates a balance that does not fit a SQLite INTEGER.
var ErrBalanceTooLarge = errors.New("balance exceeds sqlite integer range")

// Store persists ledger accounts in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite ledger at path and applies embedded migrations.
// Transactions use BEGIN IMMEDIATE so concurrent writers from other processes
// wait on the busy timeout instead of failing mid-transaction.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin starts an immediate-mode SQLite transaction.
func (s *Store) Begin(ctx context.Context) (ledger.BackendTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin sqlite tx: %w", err)
	}
	return &storeTx{ctx: ctx, tx: tx}, nil
}

// Get reads a committed account.
func (s *Store) Get(ctx context.Context, addr types.Address) (ledger.Account, bool, error) {
	return getAccount(ctx, s.db, addr)
}

// Count returns the number of stored accounts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM accounts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q queryer, addr types.Address) (ledger.Account, bool, error) {
	var (
		balance int64
		owner   string
		space   int
	)
	err := q.QueryRowContext(ctx,
		"SELECT balance, owner, space FROM accounts WHERE address = ?", addr.String(),
	).Scan(&balance, &owner, &space)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("get account: %w", err)
	}

	ownerAddr, err := types.DecodeAddress(owner)
	if err != nil {
		return ledger.Account{}, false, fmt.Errorf("decode owner of %s: %w", addr, err)
	}
	return ledger.Account{
		Address: addr,
		Balance: uint64(balance),
		Owner:   ownerAddr,
		Space:   space,
	}, true, nil
}

type storeTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *storeTx) Get(addr types.Address) (ledger.Account, bool, error) {
	return getAccount(t.ctx, t.tx, addr)
}

func (t *storeTx) Put(acct ledger.Account) error {
	if acct.Balance > math.MaxInt64 {
		return fmt.Errorf("%w: %s", ErrBalanceTooLarge, acct.Address)
	}
	_, err := t.tx.ExecContext(t.ctx,
		`INSERT INTO accounts (address, balance, owner, space, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   balance = excluded.balance,
		   owner = excluded.owner,
		   space = excluded.space,
		   updated_at = excluded.updated_at`,
		acct.Address.String(),
		int64(acct.Balance),
		acct.Owner.String(),
		acct.Space,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

func (t *storeTx) Delete(addr types.Address) error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM accounts WHERE address = ?", addr.String()); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (t *storeTx) Commit() error {
	return t.tx.Commit()
}

func (t *storeTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// Compile-time interface check
var _ ledger.Backend = (*Store)(nil)
