// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package vault implements per-owner custodial vaults. Each owner has exactly
// one vault, at an address derived from the owner's identity. A deposit funds
// an absent vault; a withdrawal returns the whole balance to the owner and
// closes the vault in the same ledger transaction.
//
// Lifecycle: ABSENT --deposit--> FUNDED --withdraw--> ABSENT.
package vault

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apvault/internal/derive"
	"github.com/aplane-algo/apvault/internal/ledger"
)

// VaultSpace is the data size of a vault account. A vault stores nothing but
// its balance, so its floor is the ledger's floor for an empty account.
const VaultSpace = 0

// DefaultProgramID namespaces vault addresses when no program id is configured.
var DefaultProgramID = types.Address(sha512.Sum512_256([]byte("apvault/program/v1")))

// Ledger is the subset of the host ledger the manager depends on.
type Ledger interface {
	Execute(ctx context.Context, req ledger.Request, fn func(ledger.Tx) error) error
	Account(ctx context.Context, addr types.Address) (ledger.Account, bool, error)
	MinimumBalance(space int) uint64
}

// Manager runs deposits and withdrawals against a Ledger.
type Manager struct {
	ledger    Ledger
	programID types.Address
	logger    *slog.Logger
	metrics   *Metrics
	nonce     func() ([]byte, error)
}

// Option is a functional option for configuring the Manager
type Option func(*Manager) error

// NewManager creates a vault manager bound to l.
func NewManager(l Ledger, opts ...Option) (*Manager, error) {
	if l == nil {
		return nil, ErrNoLedger
	}

	m := &Manager{
		ledger:    l,
		programID: DefaultProgramID,
		logger:    slog.New(slog.DiscardHandler),
		nonce:     randomNonce,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// WithProgramID sets the program id vault addresses are derived under
func WithProgramID(id types.Address) Option {
	return func(m *Manager) error {
		if id.IsZero() {
			return fmt.Errorf("program id must not be the zero address")
		}
		m.programID = id
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger != nil {
			m.logger = logger
		}
		return nil
	}
}

// WithMetrics records operation counters in metrics
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) error {
		m.metrics = metrics
		return nil
	}
}

// ProgramID returns the program id vault addresses are derived under.
func (m *Manager) ProgramID() types.Address {
	return m.programID
}

// DeriveVault returns owner's vault address and bump.
func (m *Manager) DeriveVault(owner types.Address) (types.Address, byte, error) {
	addr, proof, err := derive.Vault(m.programID, owner)
	if err != nil {
		return types.Address{}, 0, fmt.Errorf("failed to derive vault for %s: %w", owner, err)
	}
	return addr, proof.Bump, nil
}

// Floor returns the current minimum persistence floor for a vault. Deposits
// must exceed it.
func (m *Manager) Floor() uint64 {
	return m.ledger.MinimumBalance(VaultSpace)
}

// Deposit moves amount from owner into owner's vault, creating the vault.
// It fails with ErrVaultAlreadyFunded if the vault holds funds, with
// ErrInvalidAmount if amount does not exceed the floor, and with
// ErrInsufficientFunds if owner cannot pay. A failed call changes nothing.
func (m *Manager) Deposit(ctx context.Context, owner Signer, amount uint64) (*DepositResult, error) {
	result, err := m.deposit(ctx, owner, amount)
	m.metrics.observe(MethodDeposit, amount, err)
	if err != nil {
		m.logger.Debug("vault deposit rejected", "kind", string(KindOf(err)), "amount", amount, "error", err)
		return nil, err
	}
	m.logger.Info("vault deposit",
		"owner", result.Owner.String(),
		"vault", result.Vault.String(),
		"amount", result.Amount)
	return result, nil
}

func (m *Manager) deposit(ctx context.Context, owner Signer, amount uint64) (*DepositResult, error) {
	if owner == nil {
		return nil, ErrNoOwner
	}
	ownerAddr := owner.Address()

	vaultAddr, proof, err := derive.Vault(m.programID, ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault for %s: %w", ownerAddr, err)
	}

	req, err := m.sign(owner, MethodDeposit, amount)
	if err != nil {
		return nil, err
	}

	result := &DepositResult{
		Owner:  ownerAddr,
		Vault:  vaultAddr,
		Bump:   proof.Bump,
		Amount: amount,
	}

	err = m.ledger.Execute(ctx, req, func(tx ledger.Tx) error {
		acct, exists, err := tx.Account(vaultAddr)
		if err != nil {
			return err
		}
		if exists && acct.Balance > 0 {
			return fmt.Errorf("%w: %s holds %d", ErrVaultAlreadyFunded, vaultAddr, acct.Balance)
		}

		floor := tx.MinimumBalance(VaultSpace)
		result.Floor = floor
		if amount <= floor {
			return fmt.Errorf("%w: %d does not exceed the minimum persistence floor %d", ErrInvalidAmount, amount, floor)
		}

		if !exists {
			_, err := tx.CreateAccount(ownerAddr, proof, amount, VaultSpace)
			return err
		}
		// An emptied account still present at the vault address is topped up.
		return tx.Transfer(ownerAddr, vaultAddr, amount)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdraw transfers the entire vault balance to owner and closes the vault
// in one ledger transaction. It fails with ErrNoFundsToWithdraw if the vault
// is absent or empty.
func (m *Manager) Withdraw(ctx context.Context, owner Signer) (*WithdrawResult, error) {
	result, err := m.withdraw(ctx, owner)
	var total uint64
	if result != nil {
		total = result.Total()
	}
	m.metrics.observe(MethodWithdraw, total, err)
	if err != nil {
		m.logger.Debug("vault withdraw rejected", "kind", string(KindOf(err)), "error", err)
		return nil, err
	}
	m.logger.Info("vault withdraw",
		"owner", result.Owner.String(),
		"vault", result.Vault.String(),
		"amount", result.Amount,
		"residual", result.Residual)
	return result, nil
}

func (m *Manager) withdraw(ctx context.Context, owner Signer) (*WithdrawResult, error) {
	if owner == nil {
		return nil, ErrNoOwner
	}
	ownerAddr := owner.Address()

	vaultAddr, proof, err := derive.Vault(m.programID, ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to derive vault for %s: %w", ownerAddr, err)
	}

	req, err := m.sign(owner, MethodWithdraw, 0)
	if err != nil {
		return nil, err
	}

	result := &WithdrawResult{
		Owner: ownerAddr,
		Vault: vaultAddr,
		Bump:  proof.Bump,
	}

	err = m.ledger.Execute(ctx, req, func(tx ledger.Tx) error {
		if err := tx.RequireSigner(ownerAddr); err != nil {
			return err
		}

		acct, exists, err := tx.Account(vaultAddr)
		if err != nil {
			return err
		}
		if !exists || acct.Balance == 0 {
			return fmt.Errorf("%w: vault %s is empty", ErrNoFundsToWithdraw, vaultAddr)
		}

		result.Amount = acct.Balance
		if err := tx.TransferWithDerivedAuthority(vaultAddr, ownerAddr, acct.Balance, proof); err != nil {
			return err
		}

		remaining, _, err := tx.Account(vaultAddr)
		if err != nil {
			return err
		}
		result.Residual = remaining.Balance
		return tx.CloseAndRefund(vaultAddr, ownerAddr)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Status reports the committed state of owner's vault. It needs no signature.
func (m *Manager) Status(ctx context.Context, owner types.Address) (*StatusResult, error) {
	vaultAddr, bump, err := m.DeriveVault(owner)
	if err != nil {
		return nil, err
	}

	acct, exists, err := m.ledger.Account(ctx, vaultAddr)
	if err != nil {
		return nil, err
	}

	status := &StatusResult{
		Owner: owner,
		Vault: vaultAddr,
		Bump:  bump,
		State: StateAbsent,
	}
	if exists && acct.Balance > 0 {
		status.State = StateFunded
		status.Balance = acct.Balance
	}
	return status, nil
}

// sign builds and signs the instruction authorizing one call.
func (m *Manager) sign(owner Signer, method string, amount uint64) (ledger.Request, error) {
	nonce, err := m.nonce()
	if err != nil {
		return ledger.Request{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	inst := Instruction{
		Program: m.programID,
		Method:  method,
		Owner:   owner.Address(),
		Amount:  amount,
		Nonce:   nonce,
	}
	msg := inst.Bytes()

	sig, err := owner.Sign(msg)
	if err != nil {
		return ledger.Request{}, fmt.Errorf("owner %s failed to sign %s: %w", inst.Owner, method, err)
	}

	return ledger.Request{
		Message:    msg,
		Signatures: []ledger.Signature{{Signer: inst.Owner, Sig: sig}},
	}, nil
}

func randomNonce() ([]byte, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return nonce, nil
}
