// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import "github.com/algorand/go-algorand-sdk/v2/types"

// State is the lifecycle state of one owner's vault.
type State string

const (
	StateAbsent State = "ABSENT"
	StateFunded State = "FUNDED"
)

// DepositResult describes a completed deposit.
type DepositResult struct {
	Owner  types.Address
	Vault  types.Address
	Bump   byte
	Amount uint64 // units moved into the vault
	Floor  uint64 // minimum persistence floor the amount was checked against
}

// WithdrawResult describes a completed withdrawal.
type WithdrawResult struct {
	Owner    types.Address
	Vault    types.Address
	Bump     byte
	Amount   uint64 // balance transferred out with derived authority
	Residual uint64 // balance refunded when the account was closed
}

// Total returns everything the owner received.
func (r *WithdrawResult) Total() uint64 {
	return r.Amount + r.Residual
}

// StatusResult is a read-only snapshot of a vault.
type StatusResult struct {
	Owner   types.Address
	Vault   types.Address
	Bump    byte
	State   State
	Balance uint64
}
