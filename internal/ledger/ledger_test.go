// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"sync"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apvault/internal/derive"
)

var testProgramID = types.Address(sha512.Sum512_256([]byte("ledger-test-program")))

type testKey struct {
	addr types.Address
	priv ed25519.PrivateKey
}

func newTestKey(index int) testKey {
	seed := make([]byte, ed25519.SeedSize)
	binary.BigEndian.PutUint64(seed, uint64(index)+100)
	priv := ed25519.NewKeyFromSeed(seed)
	var addr types.Address
	copy(addr[:], priv.Public().(ed25519.PublicKey))
	return testKey{addr: addr, priv: priv}
}

func signedBy(msg string, keys ...testKey) Request {
	req := Request{Message: []byte(msg)}
	for _, k := range keys {
		req.Signatures = append(req.Signatures, Signature{
			Signer: k.addr,
			Sig:    ed25519.Sign(k.priv, req.Message),
		})
	}
	return req
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(NewMemoryBackend())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func mustBalance(t *testing.T, l *Ledger, addr types.Address) uint64 {
	t.Helper()
	bal, err := l.Balance(context.Background(), addr)
	if err != nil {
		t.Fatalf("Balance(%s) error = %v", addr, err)
	}
	return bal
}

func TestNew_NoBackend(t *testing.T) {
	if _, err := New(nil); err != ErrNoBackend {
		t.Errorf("New(nil) error = %v, want ErrNoBackend", err)
	}
}

func TestParams_MinimumBalance(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		space int
		want  uint64
	}{
		{0, 890_880},
		{8, 946_560},
		{165, 2_039_280},
		{-1, 890_880},
	}
	for _, tt := range tests {
		if got := p.MinimumBalance(tt.space); got != tt.want {
			t.Errorf("MinimumBalance(%d) = %d, want %d", tt.space, got, tt.want)
		}
	}

	huge := Params{AccountOverhead: 1 << 62, UnitsPerByteYear: 1 << 62, ExemptionYears: 2}
	if got := huge.MinimumBalance(0); got != ^uint64(0) {
		t.Errorf("overflowing MinimumBalance = %d, want saturation", got)
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"zero rent", Params{AccountOverhead: 128, UnitsPerByteYear: 0, ExemptionYears: 2}, true},
		{"zero years", Params{AccountOverhead: 128, UnitsPerByteYear: 1, ExemptionYears: 0}, true},
		{"overflow", Params{AccountOverhead: 1 << 40, UnitsPerByteYear: 1 << 40, ExemptionYears: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Validate() error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestAirdrop(t *testing.T) {
	l := newTestLedger(t)
	alice := newTestKey(1)
	ctx := context.Background()

	if err := l.Airdrop(ctx, alice.addr, 10_000_000); err != nil {
		t.Fatalf("Airdrop() error = %v", err)
	}
	if got := mustBalance(t, l, alice.addr); got != 10_000_000 {
		t.Errorf("balance = %d, want 10000000", got)
	}

	// A fresh account below the floor cannot persist
	bob := newTestKey(2)
	if err := l.Airdrop(ctx, bob.addr, 1000); !errors.Is(err, ErrBelowPersistenceFloor) {
		t.Errorf("Airdrop() below floor error = %v, want ErrBelowPersistenceFloor", err)
	}
	if _, ok, _ := l.Account(ctx, bob.addr); ok {
		t.Error("account below floor should not exist")
	}
}

func TestExecute_Transfer(t *testing.T) {
	l := newTestLedger(t)
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 5_000_000)

	err := l.Execute(ctx, signedBy("pay", alice), func(tx Tx) error {
		return tx.Transfer(alice.addr, bob.addr, 2_000_000)
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := mustBalance(t, l, alice.addr); got != 3_000_000 {
		t.Errorf("alice = %d, want 3000000", got)
	}
	if got := mustBalance(t, l, bob.addr); got != 2_000_000 {
		t.Errorf("bob = %d, want 2000000", got)
	}
}

func TestExecute_TransferWholeBalanceRemovesAccount(t *testing.T) {
	backend := NewMemoryBackend()
	l, err := New(backend)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 5_000_000)

	err = l.Execute(ctx, signedBy("sweep", alice), func(tx Tx) error {
		return tx.Transfer(alice.addr, bob.addr, 5_000_000)
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, ok, _ := l.Account(ctx, alice.addr); ok {
		t.Error("emptied account should be removed")
	}
	if n := backend.Len(); n != 1 {
		t.Errorf("backend.Len() = %d, want 1", n)
	}
}

func TestExecute_CreditOnlyAccountIgnoresFloor(t *testing.T) {
	l := newTestLedger(t)
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	if err := l.Airdrop(ctx, alice.addr, 5_000_000); err != nil {
		t.Fatal(err)
	}

	// bob is created by the credit and holds far less than the floor
	err := l.Execute(ctx, signedBy("pay", alice), func(tx Tx) error {
		return tx.Transfer(alice.addr, bob.addr, 1000)
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := mustBalance(t, l, bob.addr); got != 1000 {
		t.Errorf("bob = %d, want 1000", got)
	}

	// A raised floor still applies to the debited side
	p := DefaultParams()
	p.ExemptionYears = 12
	if err := l.SetParams(p); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	err = l.Execute(ctx, signedBy("pay", alice), func(tx Tx) error {
		return tx.Transfer(alice.addr, bob.addr, 1000)
	})
	if !errors.Is(err, ErrBelowPersistenceFloor) {
		t.Fatalf("debiting alice below the raised floor: error = %v, want ErrBelowPersistenceFloor", err)
	}
	if got := mustBalance(t, l, bob.addr); got != 1000 {
		t.Errorf("bob = %d after rollback, want 1000", got)
	}
}

func TestExecute_Errors(t *testing.T) {
	alice, bob := newTestKey(1), newTestKey(2)
	_, proof, err := derive.Vault(testProgramID, alice.addr)
	if err != nil {
		t.Fatalf("derive.Vault() error = %v", err)
	}

	tests := []struct {
		name    string
		req     Request
		fn      func(Tx) error
		wantErr error
	}{
		{
			name:    "unsigned transfer",
			req:     signedBy("x"),
			fn:      func(tx Tx) error { return tx.Transfer(alice.addr, bob.addr, 1) },
			wantErr: ErrMissingSignature,
		},
		{
			name:    "insufficient funds",
			req:     signedBy("x", alice),
			fn:      func(tx Tx) error { return tx.Transfer(alice.addr, bob.addr, 6_000_000) },
			wantErr: ErrInsufficientFunds,
		},
		{
			name:    "source left below floor",
			req:     signedBy("x", alice),
			fn:      func(tx Tx) error { return tx.Transfer(alice.addr, bob.addr, 4_500_000) },
			wantErr: ErrBelowPersistenceFloor,
		},
		{
			name: "bad signature",
			req: Request{
				Message:    []byte("x"),
				Signatures: []Signature{{Signer: alice.addr, Sig: ed25519.Sign(bob.priv, []byte("x"))}},
			},
			fn:      func(tx Tx) error { return nil },
			wantErr: ErrInvalidSignature,
		},
		{
			name: "short signature",
			req: Request{
				Message:    []byte("x"),
				Signatures: []Signature{{Signer: alice.addr, Sig: []byte{1, 2, 3}}},
			},
			fn:      func(tx Tx) error { return nil },
			wantErr: ErrInvalidSignature,
		},
		{
			name: "create below floor",
			req:  signedBy("x", alice),
			fn: func(tx Tx) error {
				_, err := tx.CreateAccount(alice.addr, proof, 1000, 0)
				return err
			},
			wantErr: ErrBelowPersistenceFloor,
		},
		{
			name: "derived transfer with foreign proof",
			req:  signedBy("x", alice),
			fn: func(tx Tx) error {
				return tx.TransferWithDerivedAuthority(alice.addr, bob.addr, 1, proof)
			},
			wantErr: ErrInvalidProof,
		},
		{
			name:    "close without authority",
			req:     signedBy("x", bob),
			fn:      func(tx Tx) error { return tx.CloseAndRefund(alice.addr, bob.addr) },
			wantErr: ErrMissingSignature,
		},
		{
			name:    "close into itself",
			req:     signedBy("x", alice),
			fn:      func(tx Tx) error { return tx.CloseAndRefund(alice.addr, alice.addr) },
			wantErr: ErrInvalidRefund,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			ctx := context.Background()
			_ = l.Airdrop(ctx, alice.addr, 5_000_000)

			err := l.Execute(ctx, tt.req, tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Execute() error = %v, want %v", err, tt.wantErr)
			}
			if got := mustBalance(t, l, alice.addr); got != 5_000_000 {
				t.Errorf("alice = %d after failed call, want 5000000", got)
			}
			if got := mustBalance(t, l, bob.addr); got != 0 {
				t.Errorf("bob = %d after failed call, want 0", got)
			}
		})
	}
}

func TestExecute_RollbackOnCallbackError(t *testing.T) {
	l := newTestLedger(t)
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 5_000_000)

	boom := errors.New("boom")
	err := l.Execute(ctx, signedBy("x", alice), func(tx Tx) error {
		if err := tx.Transfer(alice.addr, bob.addr, 1_000_000); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("Execute() error = %v, want boom", err)
	}
	if got := mustBalance(t, l, alice.addr); got != 5_000_000 {
		t.Errorf("alice = %d, want 5000000", got)
	}
	if _, ok, _ := l.Account(ctx, bob.addr); ok {
		t.Error("bob should not exist after rollback")
	}
}

func TestExecute_DerivedAccountLifecycle(t *testing.T) {
	l := newTestLedger(t)
	alice := newTestKey(1)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 10_000_000)

	vaultAddr, proof, err := derive.Vault(testProgramID, alice.addr)
	if err != nil {
		t.Fatalf("derive.Vault() error = %v", err)
	}

	err = l.Execute(ctx, signedBy("create", alice), func(tx Tx) error {
		created, err := tx.CreateAccount(alice.addr, proof, 3_000_000, 0)
		if err != nil {
			return err
		}
		if created != vaultAddr {
			t.Errorf("CreateAccount() = %s, want %s", created, vaultAddr)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	acct, ok, _ := l.Account(ctx, vaultAddr)
	if !ok || acct.Balance != 3_000_000 || acct.Owner != testProgramID {
		t.Fatalf("vault account = %+v (exists=%v)", acct, ok)
	}

	// A second create at the same address is rejected
	err = l.Execute(ctx, signedBy("create again", alice), func(tx Tx) error {
		_, err := tx.CreateAccount(alice.addr, proof, 3_000_000, 0)
		return err
	})
	if !errors.Is(err, ErrAccountInUse) {
		t.Fatalf("second create error = %v, want ErrAccountInUse", err)
	}

	// A proof with the wrong bump does not authorize the vault
	err = l.Execute(ctx, signedBy("steal", alice), func(tx Tx) error {
		return tx.TransferWithDerivedAuthority(vaultAddr, alice.addr, 1_000_000, derive.Proof{ProgramID: testProgramID, Seeds: proof.Seeds, Bump: proof.Bump - 1})
	})
	if !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("wrong-bump transfer error = %v, want ErrInvalidProof", err)
	}

	err = l.Execute(ctx, signedBy("withdraw", alice), func(tx Tx) error {
		if err := tx.TransferWithDerivedAuthority(vaultAddr, alice.addr, 2_000_000, proof); err != nil {
			return err
		}
		return tx.CloseAndRefund(vaultAddr, alice.addr)
	})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, ok, _ := l.Account(ctx, vaultAddr); ok {
		t.Error("vault account should be closed")
	}
	if got := mustBalance(t, l, alice.addr); got != 10_000_000 {
		t.Errorf("alice = %d, want 10000000", got)
	}
}

func TestExecute_ReadOwnWrites(t *testing.T) {
	l := newTestLedger(t)
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 5_000_000)

	err := l.Execute(ctx, signedBy("x", alice), func(tx Tx) error {
		if err := tx.Transfer(alice.addr, bob.addr, 1_000_000); err != nil {
			return err
		}
		acct, ok, err := tx.Account(bob.addr)
		if err != nil {
			return err
		}
		if !ok || acct.Balance != 1_000_000 {
			t.Errorf("in-tx bob = %+v (exists=%v)", acct, ok)
		}
		if committed := mustBalance(t, l, bob.addr); committed != 0 {
			t.Errorf("committed bob = %d before commit, want 0", committed)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}

func TestExecute_ContextCanceled(t *testing.T) {
	l := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Execute(ctx, signedBy("x"), func(Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if called {
		t.Error("callback must not run after cancellation")
	}
}

func TestExecute_SerializesConflictingCalls(t *testing.T) {
	l := newTestLedger(t)
	alice, bob := newTestKey(1), newTestKey(2)
	ctx := context.Background()
	_ = l.Airdrop(ctx, alice.addr, 5_000_000)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Execute(ctx, signedBy("sweep", alice), func(tx Tx) error {
				acct, ok, err := tx.Account(alice.addr)
				if err != nil {
					return err
				}
				if !ok {
					return ErrInsufficientFunds
				}
				return tx.Transfer(alice.addr, bob.addr, acct.Balance)
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if got := mustBalance(t, l, bob.addr); got != 5_000_000 {
		t.Errorf("bob = %d, want 5000000", got)
	}
}

func TestSetParams(t *testing.T) {
	l := newTestLedger(t)
	if got := l.MinimumBalance(0); got != 890_880 {
		t.Fatalf("MinimumBalance(0) = %d, want 890880", got)
	}

	p := DefaultParams()
	p.ExemptionYears = 4
	if err := l.SetParams(p); err != nil {
		t.Fatalf("SetParams() error = %v", err)
	}
	if got := l.MinimumBalance(0); got != 1_781_760 {
		t.Errorf("MinimumBalance(0) = %d, want 1781760", got)
	}

	if err := l.SetParams(Params{}); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("SetParams(zero) error = %v, want ErrInvalidParams", err)
	}
	if got := l.MinimumBalance(0); got != 1_781_760 {
		t.Errorf("invalid params must not be applied; floor = %d", got)
	}
}
