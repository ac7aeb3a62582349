// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aplane-algo/apvault/internal/crypto"
	"github.com/aplane-algo/apvault/internal/jsapi"
	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/vault"
)

func newTestRunner(t *testing.T) (*GojaRunner, *[]string) {
	t.Helper()

	ks, err := keystore.Open(t.TempDir(), []byte("pw"),
		keystore.WithKDFParams(crypto.KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1}))
	if err != nil {
		t.Fatalf("keystore.Open() error = %v", err)
	}
	if _, _, err := ks.Generate("alice"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	l, err := ledger.New(ledger.NewMemoryBackend())
	if err != nil {
		t.Fatalf("ledger.New() error = %v", err)
	}
	m, err := vault.NewManager(l)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	r := NewGojaRunner(jsapi.Env{Manager: m, Ledger: l, Keys: ks, Faucet: true})
	var out []string
	r.SetOutput(func(s string) { out = append(out, s) })
	return r, &out
}

func TestRun_Scenario(t *testing.T) {
	r, out := newTestRunner(t)

	script := `
ledger.airdrop("alice", 20000000);
var d = vault.deposit("alice", "5_000_000");
print("deposited", d.amount, "floor", d.floor);

var rejected = "";
try {
  vault.deposit("alice", 10);
} catch (e) {
  rejected = e.kind + ":" + e.code;
}

var before = ledger.balance("alice");
var w = vault.withdraw("alice");
var gained = ledger.balance("alice") - before;

var second = "";
try { vault.withdraw("alice"); } catch (e) { second = e.kind; }

[rejected, w.total, gained, second, vault.status("alice").state].join(",");
`
	res, err := r.Run(script)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "VaultAlreadyFunded:6001,5000000,5000000,NoFundsToWithdraw,ABSENT"
	if res.Value != want {
		t.Errorf("Run() = %v, want %s", res.Value, want)
	}
	if len(*out) != 1 || (*out)[0] != "deposited 5000000 floor 890880" {
		t.Errorf("output = %q", *out)
	}
}

func TestRun_ErrorsCarryKind(t *testing.T) {
	r, _ := newTestRunner(t)

	tests := []struct {
		name     string
		code     string
		wantKind string
	}{
		{"at floor", `ledger.airdrop("alice", 5000000); vault.deposit("alice", vault.floor())`, string(vault.KindInvalidAmount)},
		{"insufficient", `vault.deposit("alice", 999000000)`, string(vault.KindInsufficientFunds)},
		{"empty vault", `vault.withdraw("alice")`, string(vault.KindNoFundsToWithdraw)},
		{"unknown key", `vault.withdraw("nobody")`, string(vault.KindInternal)},
		{"plain throw", `throw new Error("boom")`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Run(tt.code)
			var se *ScriptError
			if !errors.As(err, &se) {
				t.Fatalf("Run() error = %v, want *ScriptError", err)
			}
			if se.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q (message %s)", se.Kind, tt.wantKind, se.Message)
			}
		})
	}
}

func TestRun_StatePersists(t *testing.T) {
	r, _ := newTestRunner(t)
	if _, err := r.Run(`var n = 40`); err != nil {
		t.Fatal(err)
	}
	res, err := r.Run(`n + 2`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != int64(42) {
		t.Errorf("Run() = %v (%T), want 42", res.Value, res.Value)
	}

	res, err = r.Run(`undefined`)
	if err != nil || !res.IsEmpty {
		t.Errorf("Run(undefined) = %+v, %v; want empty", res, err)
	}
}

func TestRunContext_Timeout(t *testing.T) {
	r, _ := newTestRunner(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.RunContext(ctx, `while (true) {}`)
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Fatalf("RunContext() error = %v, want interrupted", err)
	}

	// The runtime stays usable afterwards
	res, err := r.Run(`1 + 1`)
	if err != nil || res.Value != int64(2) {
		t.Errorf("Run() after interrupt = %+v, %v", res, err)
	}
}
