// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"
	"strings"

	"github.com/aplane-algo/apvault/internal/command"
	"github.com/aplane-algo/apvault/internal/jsapi"
	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/version"
)

func (a *app) cmdDeposit(args []string, ctx *command.Context) error {
	amount, err := util.ParseUnits(args[1])
	if err != nil {
		return err
	}
	key, err := a.keys.Get(args[0])
	if err != nil {
		return err
	}
	defer key.Zero()

	res, err := a.manager.Deposit(ctx, key, amount)
	if err != nil {
		return err
	}
	s := a.styles
	_, _ = fmt.Fprintf(ctx.Out, "%s deposited %s into %s (bump %d, floor %s)\n",
		s.OK("✓"), s.Amount(res.Amount), s.Address(res.Vault.String()), res.Bump, s.Amount(res.Floor))
	return nil
}

func (a *app) cmdWithdraw(args []string, ctx *command.Context) error {
	key, err := a.keys.Get(args[0])
	if err != nil {
		return err
	}
	defer key.Zero()

	res, err := a.manager.Withdraw(ctx, key)
	if err != nil {
		return err
	}
	s := a.styles
	_, _ = fmt.Fprintf(ctx.Out, "%s withdrew %s from %s; vault closed\n",
		s.OK("✓"), s.Amount(res.Total()), s.Address(res.Vault.String()))
	return nil
}

func (a *app) cmdStatus(args []string, ctx *command.Context) error {
	owner, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	st, err := a.manager.Status(ctx, owner)
	if err != nil {
		return err
	}
	s := a.styles
	_, _ = fmt.Fprintf(ctx.Out, "%s %s\n", s.Label("Owner:  "), s.Address(st.Owner.String()))
	_, _ = fmt.Fprintf(ctx.Out, "%s %s (bump %d)\n", s.Label("Vault:  "), s.Address(st.Vault.String()), st.Bump)
	_, _ = fmt.Fprintf(ctx.Out, "%s %s\n", s.Label("State:  "), st.State)
	_, _ = fmt.Fprintf(ctx.Out, "%s %s\n", s.Label("Balance:"), s.Amount(st.Balance))
	return nil
}

func (a *app) cmdDerive(args []string, ctx *command.Context) error {
	owner, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	addr, bump, err := a.manager.DeriveVault(owner)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Out, "%s bump=%d\n", a.styles.Address(addr.String()), bump)
	return nil
}

func (a *app) cmdFloor(_ []string, ctx *command.Context) error {
	_, _ = fmt.Fprintf(ctx.Out, "%s units\n", a.styles.Amount(a.manager.Floor()))
	return nil
}

func (a *app) cmdBalance(args []string, ctx *command.Context) error {
	addr, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	bal, err := a.ledger.Balance(ctx, addr)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Out, "%s: %s\n", a.styles.Address(addr.String()), a.styles.Amount(bal))
	return nil
}

func (a *app) cmdAirdrop(args []string, ctx *command.Context) error {
	if !a.config.Faucet {
		return jsapi.ErrFaucetDisabled
	}
	addr, err := a.resolve(args[0])
	if err != nil {
		return err
	}
	amount, err := util.ParseUnits(args[1])
	if err != nil {
		return err
	}
	if err := a.ledger.Airdrop(ctx, addr, amount); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Out, "%s airdropped %s to %s\n",
		a.styles.OK("✓"), a.styles.Amount(amount), a.styles.Address(addr.String()))
	return nil
}

func (a *app) cmdKeygen(args []string, ctx *command.Context) error {
	key, words, err := a.keys.Generate(args[0])
	if err != nil {
		return err
	}
	defer key.Zero()

	_, _ = fmt.Fprintf(ctx.Out, "%s %s %s\n", a.styles.OK("✓"), args[0], a.styles.Address(key.Address().String()))
	_, _ = fmt.Fprintf(ctx.Out, "Mnemonic (write it down, it will not be shown again):\n%s\n", words)
	return nil
}

func (a *app) cmdImport(args []string, ctx *command.Context) error {
	key, err := a.keys.Import(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	defer key.Zero()

	_, _ = fmt.Fprintf(ctx.Out, "%s imported %s %s\n", a.styles.OK("✓"), args[0], a.styles.Address(key.Address().String()))
	return nil
}

func (a *app) cmdExport(args []string, ctx *command.Context) error {
	words, err := a.keys.Export(args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(ctx.Out, words)
	return nil
}

func (a *app) cmdKeys(_ []string, ctx *command.Context) error {
	keys, err := a.keys.List()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(ctx.Out, "No keys. Create one with 'keygen <name>'.")
		return nil
	}
	for _, k := range keys {
		_, _ = fmt.Fprintf(ctx.Out, "  %-16s %s\n", k.Name, a.styles.Address(k.Address.String()))
	}
	return nil
}

func (a *app) cmdDelete(args []string, ctx *command.Context) error {
	if err := a.keys.Delete(args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ctx.Out, "%s deleted %s\n", a.styles.OK("✓"), args[0])
	return nil
}

func (a *app) cmdJS(_ []string, ctx *command.Context) error {
	result, err := a.runner.RunContext(ctx, ctx.RawArgs)
	if err != nil {
		return err
	}
	if !result.IsEmpty {
		_, _ = fmt.Fprintf(ctx.Out, "%v\n", result.Value)
	}
	return nil
}

func (a *app) cmdHelp(args []string, ctx *command.Context) error {
	if len(args) > 0 {
		cmd, ok := a.registry.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		command.ShowCommandHelp(ctx.Out, cmd)
		return nil
	}
	command.ShowHelp(ctx.Out, a.registry)
	return nil
}

func (a *app) cmdVersion(_ []string, ctx *command.Context) error {
	_, _ = fmt.Fprintln(ctx.Out, version.String())
	return nil
}
