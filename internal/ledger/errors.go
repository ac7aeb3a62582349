// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import "errors"

var (
	// ErrInsufficientFunds indicates the source account cannot cover a debit
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMissingSignature indicates an account was debited or closed without
	// a signature or derivation proof authorizing it
	ErrMissingSignature = errors.New("missing required signature")

	// ErrInvalidSignature indicates a request signature failed verification
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidProof indicates a derivation proof does not reproduce the account address
	ErrInvalidProof = errors.New("derivation proof does not match account")

	// ErrWrongOwner indicates the account is owned by a different program
	ErrWrongOwner = errors.New("account owned by a different program")

	// ErrAccountInUse indicates CreateAccount targeted an address that already exists
	ErrAccountInUse = errors.New("account already in use")

	// ErrAccountNotFound indicates the account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrBelowPersistenceFloor indicates an account would hold a non-zero
	// balance below its minimum balance
	ErrBelowPersistenceFloor = errors.New("balance below minimum persistence floor")

	// ErrBalanceOverflow indicates a credit would overflow the account balance
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrInvalidRefund indicates an account was closed into itself
	ErrInvalidRefund = errors.New("cannot refund a closed account to itself")

	// ErrInvalidParams indicates rent parameters that cannot produce a floor
	ErrInvalidParams = errors.New("invalid ledger parameters")

	// ErrNoBackend indicates the ledger was created without a storage backend
	ErrNoBackend = errors.New("ledger backend not configured")
)
