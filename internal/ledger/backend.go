// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Backend stores accounts. The ledger serializes Begin calls; a backend only
// needs to make each BackendTx atomic.
type Backend interface {
	// Begin starts a storage transaction.
	Begin(ctx context.Context) (BackendTx, error)

	// Get reads committed state outside any transaction.
	Get(ctx context.Context, addr types.Address) (Account, bool, error)

	// Close releases backend resources.
	Close() error
}

// BackendTx is one all-or-nothing unit of storage writes.
type BackendTx interface {
	Get(addr types.Address) (Account, bool, error)
	Put(acct Account) error
	Delete(addr types.Address) error
	Commit() error
	Rollback() error
}
