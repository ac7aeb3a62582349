// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package jsapi provides JavaScript bindings for vault operations.
//
// Functions are grouped into objects on the global scope:
//   - vault: deposit, withdraw, status, floor, derive
//   - ledger: balance, account, airdrop
//   - keys(): stored owner key names
//   - print/log: output
//   - units(): parse "5_000_000" style amounts
//
// Failed operations throw an Error carrying kind and code properties.
package jsapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/dop251/goja"

	"github.com/aplane-algo/apvault/internal/keystore"
	"github.com/aplane-algo/apvault/internal/ledger"
	"github.com/aplane-algo/apvault/internal/vault"
)

// ErrFaucetDisabled is thrown by ledger.airdrop when the faucet is off
var ErrFaucetDisabled = errors.New("faucet is disabled")

// Keys resolves owner names to keys. *keystore.FileKeyStore implements it.
type Keys interface {
	Get(name string) (*keystore.Key, error)
	Lookup(name string) (*keystore.KeyMetadata, error)
	List() ([]keystore.KeyMetadata, error)
}

// Env is what scripts operate on.
type Env struct {
	Manager *vault.Manager
	Ledger  *ledger.Ledger
	Keys    Keys
	Faucet  bool
}

// API provides JavaScript bindings for an Env.
type API struct {
	env     Env
	runtime *goja.Runtime
	output  func(string)
	ctx     context.Context
}

// NewAPI creates a new JavaScript API instance.
func NewAPI(env Env, output func(string)) *API {
	return &API{
		env:    env,
		output: output,
		ctx:    context.Background(),
	}
}

// SetContext sets the context passed to ledger calls.
func (a *API) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	a.ctx = ctx
}

// RegisterAll registers all API functions on the given Goja runtime.
func (a *API) RegisterAll(vm *goja.Runtime) error {
	a.runtime = vm

	globals := map[string]func(goja.FunctionCall) goja.Value{
		"print": a.jsPrint,
		"log":   a.jsPrint,
		"keys":  a.jsKeys,
		"units": a.jsUnits,
	}
	for name, fn := range globals {
		if err := vm.Set(name, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	objects := map[string]map[string]func(goja.FunctionCall) goja.Value{
		"vault": {
			"deposit":  a.jsDeposit,
			"withdraw": a.jsWithdraw,
			"status":   a.jsStatus,
			"floor":    a.jsFloor,
			"derive":   a.jsDerive,
		},
		"ledger": {
			"balance": a.jsBalance,
			"account": a.jsAccount,
			"airdrop": a.jsAirdrop,
		},
	}
	for objName, fns := range objects {
		obj := vm.NewObject()
		for name, fn := range fns {
			if err := obj.Set(name, fn); err != nil {
				return fmt.Errorf("failed to register %s.%s: %w", objName, name, err)
			}
		}
		if err := vm.Set(objName, obj); err != nil {
			return fmt.Errorf("failed to register %s: %w", objName, err)
		}
	}
	return nil
}

func (a *API) jsPrint(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = a.format(arg)
	}
	a.output(strings.Join(parts, " "))
	return goja.Undefined()
}

// format renders objects as JSON and everything else with its string form.
func (a *API) format(v goja.Value) string {
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() != "Function" && obj.ClassName() != "Error" {
		if data, err := obj.MarshalJSON(); err == nil {
			return string(data)
		}
	}
	return v.String()
}

func (a *API) jsKeys(call goja.FunctionCall) goja.Value {
	list, err := a.env.Keys.List()
	if err != nil {
		a.throw(err)
	}
	names := make([]interface{}, len(list))
	for i, m := range list {
		names[i] = m.Name
	}
	return a.runtime.ToValue(names)
}

func (a *API) jsUnits(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "units(amount) requires an argument")
	return a.runtime.ToValue(a.amountArg(call.Arguments[0]))
}

func (a *API) jsDeposit(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 2, "vault.deposit(owner, amount) requires 2 arguments")
	amount := a.amountArg(call.Arguments[1])
	key := a.key(call.Arguments[0].String())
	defer key.Zero()

	res, err := a.env.Manager.Deposit(a.ctx, key, amount)
	if err != nil {
		a.throw(err)
	}
	return a.runtime.ToValue(map[string]interface{}{
		"owner":  res.Owner.String(),
		"vault":  res.Vault.String(),
		"bump":   int(res.Bump),
		"amount": res.Amount,
		"floor":  res.Floor,
	})
}

func (a *API) jsWithdraw(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "vault.withdraw(owner) requires an argument")
	key := a.key(call.Arguments[0].String())
	defer key.Zero()

	res, err := a.env.Manager.Withdraw(a.ctx, key)
	if err != nil {
		a.throw(err)
	}
	return a.runtime.ToValue(map[string]interface{}{
		"owner":    res.Owner.String(),
		"vault":    res.Vault.String(),
		"bump":     int(res.Bump),
		"amount":   res.Amount,
		"residual": res.Residual,
		"total":    res.Total(),
	})
}

func (a *API) jsStatus(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "vault.status(owner) requires an argument")
	owner := a.resolve(call.Arguments[0].String())

	st, err := a.env.Manager.Status(a.ctx, owner)
	if err != nil {
		a.throw(err)
	}
	return a.runtime.ToValue(map[string]interface{}{
		"owner":   st.Owner.String(),
		"vault":   st.Vault.String(),
		"bump":    int(st.Bump),
		"state":   string(st.State),
		"balance": st.Balance,
	})
}

func (a *API) jsFloor(call goja.FunctionCall) goja.Value {
	return a.runtime.ToValue(a.env.Manager.Floor())
}

func (a *API) jsDerive(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "vault.derive(owner) requires an argument")
	owner := a.resolve(call.Arguments[0].String())
	addr, bump, err := a.env.Manager.DeriveVault(owner)
	if err != nil {
		a.throw(err)
	}
	return a.runtime.ToValue(map[string]interface{}{
		"vault": addr.String(),
		"bump":  int(bump),
	})
}

func (a *API) jsBalance(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "ledger.balance(account) requires an argument")
	bal, err := a.env.Ledger.Balance(a.ctx, a.resolve(call.Arguments[0].String()))
	if err != nil {
		a.throw(err)
	}
	return a.runtime.ToValue(bal)
}

func (a *API) jsAccount(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 1, "ledger.account(account) requires an argument")
	acct, ok, err := a.env.Ledger.Account(a.ctx, a.resolve(call.Arguments[0].String()))
	if err != nil {
		a.throw(err)
	}
	if !ok {
		return goja.Null()
	}
	owner := "system"
	if !acct.IsSystem() {
		owner = acct.Owner.String()
	}
	return a.runtime.ToValue(map[string]interface{}{
		"address": acct.Address.String(),
		"balance": acct.Balance,
		"owner":   owner,
		"space":   acct.Space,
	})
}

func (a *API) jsAirdrop(call goja.FunctionCall) goja.Value {
	a.requireArgs(call, 2, "ledger.airdrop(account, amount) requires 2 arguments")
	if !a.env.Faucet {
		a.throw(ErrFaucetDisabled)
	}
	addr := a.resolve(call.Arguments[0].String())
	amount := a.amountArg(call.Arguments[1])
	if err := a.env.Ledger.Airdrop(a.ctx, addr, amount); err != nil {
		a.throw(err)
	}
	return goja.Undefined()
}

// key unseals the named owner key or throws.
func (a *API) key(name string) *keystore.Key {
	key, err := a.env.Keys.Get(name)
	if err != nil {
		a.throw(err)
	}
	return key
}

// resolve accepts an address or a stored key name.
func (a *API) resolve(nameOrAddr string) types.Address {
	if addr, err := types.DecodeAddress(nameOrAddr); err == nil {
		return addr
	}
	meta, err := a.env.Keys.Lookup(nameOrAddr)
	if err != nil {
		a.throw(err)
	}
	return meta.Address
}
