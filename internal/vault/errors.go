// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"errors"

	"github.com/aplane-algo/apvault/internal/derive"
	"github.com/aplane-algo/apvault/internal/ledger"
)

var (
	// ErrInvalidAmount indicates a deposit at or below the minimum persistence floor
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrVaultAlreadyFunded indicates a deposit into a vault that already holds funds
	ErrVaultAlreadyFunded = errors.New("vault already funded")

	// ErrNoFundsToWithdraw indicates a withdrawal from an absent or empty vault
	ErrNoFundsToWithdraw = errors.New("no funds to withdraw")

	// ErrInsufficientFunds indicates the owner cannot cover the deposit.
	// It is the ledger's error, passed through unchanged.
	ErrInsufficientFunds = ledger.ErrInsufficientFunds

	// ErrDerivationExhausted indicates no bump produced a valid vault address
	ErrDerivationExhausted = derive.ErrDerivationExhausted

	// ErrNoLedger indicates the manager was created without a ledger
	ErrNoLedger = errors.New("ledger not configured")

	// ErrNoOwner indicates a call without an owner signer
	ErrNoOwner = errors.New("owner signer not provided")
)

// Kind names a failure class. It is the tag callers switch on.
type Kind string

const (
	KindNone                Kind = ""
	KindInvalidAmount       Kind = "InvalidAmount"
	KindVaultAlreadyFunded  Kind = "VaultAlreadyFunded"
	KindNoFundsToWithdraw   Kind = "NoFundsToWithdraw"
	KindInsufficientFunds   Kind = "InsufficientFunds"
	KindDerivationExhausted Kind = "DerivationExhausted"
	KindUnauthorized        Kind = "Unauthorized"
	KindInternal            Kind = "Internal"
)

var kindCodes = map[Kind]int{
	KindInvalidAmount:       6000,
	KindVaultAlreadyFunded:  6001,
	KindNoFundsToWithdraw:   6002,
	KindInsufficientFunds:   6003,
	KindDerivationExhausted: 6004,
	KindUnauthorized:        6005,
	KindInternal:            6099,
}

// KindOf classifies err. A nil error has KindNone; anything unrecognized is KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.Is(err, ErrVaultAlreadyFunded):
		return KindVaultAlreadyFunded
	case errors.Is(err, ErrNoFundsToWithdraw):
		return KindNoFundsToWithdraw
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ledger.ErrBelowPersistenceFloor):
		// Paying the deposit would leave the owner's own account below its floor.
		return KindInsufficientFunds
	case errors.Is(err, ErrDerivationExhausted):
		return KindDerivationExhausted
	case errors.Is(err, ledger.ErrMissingSignature), errors.Is(err, ledger.ErrInvalidSignature):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// Code returns the numeric error code of err, or 0 for nil.
func Code(err error) int {
	return kindCodes[KindOf(err)]
}
