// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"fmt"
	"math/bits"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apvault/internal/derive"
)

// Tx is the view of the ledger inside one Execute call. Reads observe the
// transaction's own writes. Nothing is visible to other callers until the
// whole transaction commits.
type Tx interface {
	// Account returns the current state of addr within the transaction.
	Account(addr types.Address) (Account, bool, error)

	// MinimumBalance returns the persistence floor for the given data size.
	MinimumBalance(space int) uint64

	// RequireSigner fails with ErrMissingSignature unless addr signed the request.
	RequireSigner(addr types.Address) error

	// Transfer moves amount from a signing system account to to, creating to if needed.
	Transfer(from, to types.Address, amount uint64) error

	// TransferWithDerivedAuthority moves amount out of a derived account,
	// authorized by the proof that reproduces its address.
	TransferWithDerivedAuthority(from, to types.Address, amount uint64, proof derive.Proof) error

	// CreateAccount funds a new program-owned account at the proof's address.
	CreateAccount(payer types.Address, proof derive.Proof, amount uint64, space int) (types.Address, error)

	// CloseAndRefund deletes an authorized account, crediting its residual balance to refundTo.
	CloseAndRefund(account, refundTo types.Address) error
}

type txn struct {
	btx        BackendTx
	params     Params
	signers    map[types.Address]bool
	authorized map[types.Address]bool

	staged  map[types.Address]*Account
	dirty   map[types.Address]bool
	deleted map[types.Address]bool
	// debited accounts are held to the floor at commit; credit-only ones are not
	debited map[types.Address]bool
	order   []types.Address
}

func newTxn(btx BackendTx, params Params, signers map[types.Address]bool) *txn {
	authorized := make(map[types.Address]bool, len(signers))
	for addr := range signers {
		authorized[addr] = true
	}
	return &txn{
		btx:        btx,
		params:     params,
		signers:    signers,
		authorized: authorized,
		staged:     make(map[types.Address]*Account),
		dirty:      make(map[types.Address]bool),
		deleted:    make(map[types.Address]bool),
		debited:    make(map[types.Address]bool),
	}
}

func (t *txn) Account(addr types.Address) (Account, bool, error) {
	acct, err := t.load(addr)
	if err != nil {
		return Account{}, false, err
	}
	if acct == nil {
		return Account{Address: addr}, false, nil
	}
	return *acct, true, nil
}

func (t *txn) MinimumBalance(space int) uint64 {
	return t.params.MinimumBalance(space)
}

func (t *txn) RequireSigner(addr types.Address) error {
	if !t.signers[addr] {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return nil
}

func (t *txn) Transfer(from, to types.Address, amount uint64) error {
	if err := t.RequireSigner(from); err != nil {
		return err
	}
	src, err := t.load(from)
	if err != nil {
		return err
	}
	if src != nil && !src.IsSystem() {
		return fmt.Errorf("%w: %s is owned by %s", ErrWrongOwner, from, src.Owner)
	}
	if err := t.debit(from, src, amount); err != nil {
		return err
	}
	return t.credit(to, amount)
}

func (t *txn) TransferWithDerivedAuthority(from, to types.Address, amount uint64, proof derive.Proof) error {
	if !proof.Verify(from) {
		return fmt.Errorf("%w: %s", ErrInvalidProof, from)
	}
	src, err := t.load(from)
	if err != nil {
		return err
	}
	// A system-owned account at a derived address was funded by a plain
	// transfer; nobody can sign for it, so the proof is its only authority.
	if src != nil && !src.IsSystem() && src.Owner != proof.ProgramID {
		return fmt.Errorf("%w: %s is not owned by %s", ErrWrongOwner, from, proof.ProgramID)
	}
	if err := t.debit(from, src, amount); err != nil {
		return err
	}
	t.authorized[from] = true
	return t.credit(to, amount)
}

func (t *txn) CreateAccount(payer types.Address, proof derive.Proof, amount uint64, space int) (types.Address, error) {
	addr, err := proof.Address()
	if err != nil {
		return types.Address{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if err := t.RequireSigner(payer); err != nil {
		return types.Address{}, err
	}
	if space < 0 {
		return types.Address{}, fmt.Errorf("invalid account space %d", space)
	}

	existing, err := t.load(addr)
	if err != nil {
		return types.Address{}, err
	}
	if existing != nil {
		return types.Address{}, fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}

	floor := t.params.MinimumBalance(space)
	if amount < floor {
		return types.Address{}, fmt.Errorf("%w: %d < %d", ErrBelowPersistenceFloor, amount, floor)
	}

	src, err := t.load(payer)
	if err != nil {
		return types.Address{}, err
	}
	if src != nil && !src.IsSystem() {
		return types.Address{}, fmt.Errorf("%w: payer %s is owned by %s", ErrWrongOwner, payer, src.Owner)
	}
	if err := t.debit(payer, src, amount); err != nil {
		return types.Address{}, err
	}

	t.stage(&Account{
		Address: addr,
		Balance: amount,
		Owner:   proof.ProgramID,
		Space:   space,
	})
	t.dirty[addr] = true
	t.authorized[addr] = true
	return addr, nil
}

func (t *txn) CloseAndRefund(account, refundTo types.Address) error {
	if account == refundTo {
		return ErrInvalidRefund
	}
	if !t.authorized[account] {
		return fmt.Errorf("%w: %s", ErrMissingSignature, account)
	}
	acct, err := t.load(account)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}

	residual := acct.Balance
	acct.Balance = 0
	delete(t.staged, account)
	delete(t.dirty, account)
	t.deleted[account] = true
	return t.credit(refundTo, residual)
}

// load returns the staged copy of addr, reading through to the backend on
// first access. nil means the account does not exist.
func (t *txn) load(addr types.Address) (*Account, error) {
	if t.deleted[addr] {
		return nil, nil
	}
	if acct, ok := t.staged[addr]; ok {
		return acct, nil
	}
	acct, ok, err := t.btx.Get(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to read account %s: %w", addr, err)
	}
	if !ok {
		return nil, nil
	}
	t.stage(&acct)
	return &acct, nil
}

func (t *txn) stage(acct *Account) {
	if _, seen := t.staged[acct.Address]; !seen && !t.deleted[acct.Address] {
		t.order = append(t.order, acct.Address)
	}
	delete(t.deleted, acct.Address)
	t.staged[acct.Address] = acct
}

func (t *txn) debit(addr types.Address, acct *Account, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if acct == nil || acct.Balance < amount {
		var have uint64
		if acct != nil {
			have = acct.Balance
		}
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, addr, have, amount)
	}
	acct.Balance -= amount
	t.dirty[addr] = true
	t.debited[addr] = true
	return nil
}

func (t *txn) credit(addr types.Address, amount uint64) error {
	acct, err := t.load(addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &Account{Address: addr, Owner: SystemOwner}
		t.stage(acct)
	}
	sum, carry := bits.Add64(acct.Balance, amount, 0)
	if carry != 0 {
		return fmt.Errorf("%w: %s", ErrBalanceOverflow, addr)
	}
	acct.Balance = sum
	t.dirty[addr] = true
	return nil
}

// flush applies commit-time rules and writes modified accounts to the
// backend. Accounts left empty are removed. A debited account left below its
// floor aborts the transaction; an account that was only credited is kept
// whatever the floor, so a floor raised at runtime cannot block a payout.
func (t *txn) flush() (int, error) {
	written := 0
	for addr := range t.deleted {
		if err := t.btx.Delete(addr); err != nil {
			return 0, fmt.Errorf("failed to delete account %s: %w", addr, err)
		}
		written++
	}

	for _, addr := range t.order {
		acct, ok := t.staged[addr]
		if !ok || !t.dirty[addr] {
			continue
		}
		if acct.Balance == 0 {
			if err := t.btx.Delete(addr); err != nil {
				return 0, fmt.Errorf("failed to delete account %s: %w", addr, err)
			}
			written++
			continue
		}
		if floor := t.params.MinimumBalance(acct.Space); t.debited[addr] && acct.Balance < floor {
			return 0, fmt.Errorf("%w: %s would hold %d (floor %d)", ErrBelowPersistenceFloor, addr, acct.Balance, floor)
		}
		if err := t.btx.Put(*acct); err != nil {
			return 0, fmt.Errorf("failed to write account %s: %w", addr, err)
		}
		written++
	}
	return written, nil
}
