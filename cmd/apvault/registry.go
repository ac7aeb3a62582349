// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"

	"github.com/aplane-algo/apvault/internal/command"
)

// mustRegister registers a command and panics if there's an error.
// Registration errors during startup are programming bugs.
func mustRegister(registry *command.Registry, cmd *command.Command) {
	if err := registry.Register(cmd); err != nil {
		panic(fmt.Sprintf("failed to register command %q: %v", cmd.Name, err))
	}
}

// initCommandRegistry builds the registry of REPL commands.
func (a *app) initCommandRegistry() *command.Registry {
	registry := command.NewRegistry()

	// Vault
	mustRegister(registry, &command.Command{
		Name:        "deposit",
		Usage:       "deposit <key> <amount>",
		Description: "Fund the key's vault. Amount must exceed the persistence floor",
		Category:    command.CategoryVault,
		MinArgs:     2,
		Handler:     command.HandlerFunc(a.cmdDeposit),
	})
	mustRegister(registry, &command.Command{
		Name:        "withdraw",
		Usage:       "withdraw <key>",
		Description: "Return the whole vault balance to its owner and close the vault",
		Category:    command.CategoryVault,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdWithdraw),
	})
	mustRegister(registry, &command.Command{
		Name:        "status",
		Usage:       "status <key|address>",
		Description: "Show vault address, state and balance for an owner",
		Category:    command.CategoryVault,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdStatus),
	})
	mustRegister(registry, &command.Command{
		Name:        "derive",
		Usage:       "derive <key|address>",
		Description: "Derive an owner's vault address and bump",
		Category:    command.CategoryVault,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdDerive),
	})
	mustRegister(registry, &command.Command{
		Name:        "floor",
		Usage:       "floor",
		Description: "Show the minimum persistence floor for a vault",
		Category:    command.CategoryVault,
		Handler:     command.HandlerFunc(a.cmdFloor),
	})

	// Ledger
	mustRegister(registry, &command.Command{
		Name:        "balance",
		Usage:       "balance <key|address>",
		Description: "Show an account balance",
		Aliases:     []string{"bal"},
		Category:    command.CategoryLedger,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdBalance),
	})
	mustRegister(registry, &command.Command{
		Name:        "airdrop",
		Usage:       "airdrop <key|address> <amount>",
		Description: "Credit an account from the development faucet",
		Category:    command.CategoryLedger,
		MinArgs:     2,
		Handler:     command.HandlerFunc(a.cmdAirdrop),
	})

	// Keys
	mustRegister(registry, &command.Command{
		Name:        "keygen",
		Usage:       "keygen <name>",
		Description: "Generate a new owner key and print its mnemonic",
		Category:    command.CategoryKeys,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdKeygen),
	})
	mustRegister(registry, &command.Command{
		Name:        "import",
		Usage:       "import <name> <25-word mnemonic>",
		Description: "Import an owner key from its mnemonic",
		Category:    command.CategoryKeys,
		MinArgs:     2,
		Handler:     command.HandlerFunc(a.cmdImport),
	})
	mustRegister(registry, &command.Command{
		Name:        "export",
		Usage:       "export <name>",
		Description: "Print a key's mnemonic",
		Category:    command.CategoryKeys,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdExport),
	})
	mustRegister(registry, &command.Command{
		Name:        "keys",
		Usage:       "keys",
		Description: "List stored keys",
		Aliases:     []string{"accounts"},
		Category:    command.CategoryKeys,
		Handler:     command.HandlerFunc(a.cmdKeys),
	})
	mustRegister(registry, &command.Command{
		Name:        "delete",
		Usage:       "delete <name>",
		Description: "Delete a stored key",
		Category:    command.CategoryKeys,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdDelete),
	})

	// Automation
	mustRegister(registry, &command.Command{
		Name:        "js",
		Usage:       "js <code>",
		Description: "Run JavaScript against the vault and ledger objects",
		LongHelp:    "Globals: vault.deposit/withdraw/status/floor/derive, ledger.balance/account/airdrop, keys(), units(), print(), log().\nThe runtime persists between js commands.",
		Category:    command.CategoryAutomation,
		MinArgs:     1,
		Handler:     command.HandlerFunc(a.cmdJS),
	})

	// General
	mustRegister(registry, &command.Command{
		Name:        "help",
		Usage:       "help [command]",
		Description: "Show available commands",
		Aliases:     []string{"?"},
		Category:    command.CategoryGeneral,
		Handler:     command.HandlerFunc(a.cmdHelp),
	})
	mustRegister(registry, &command.Command{
		Name:        "version",
		Usage:       "version",
		Description: "Show build version",
		Category:    command.CategoryGeneral,
		Handler:     command.HandlerFunc(a.cmdVersion),
	})
	mustRegister(registry, &command.Command{
		Name:        "quit",
		Usage:       "quit",
		Description: "Exit the shell",
		Aliases:     []string{"exit"},
		Category:    command.CategoryGeneral,
		Handler:     command.HandlerFunc(func([]string, *command.Context) error { return command.ErrExit }),
	})

	return registry
}
