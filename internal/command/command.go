// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package command holds the REPL command registry.
package command

import "errors"

// ErrExit is returned by a handler to end the REPL
var ErrExit = errors.New("exit")

// Command represents a REPL command with metadata
type Command struct {
	Name        string   // Primary command name
	Aliases     []string // Alternative names (e.g., "h" for "help")
	Usage       string   // Usage string: "deposit <key> <amount>"
	Description string   // One-line description
	LongHelp    string   // Multi-line detailed help (optional)
	Category    string
	MinArgs     int // Handler is not called with fewer arguments
	Handler     Handler
}

// Handler is the interface all command handlers implement
type Handler interface {
	Execute(args []string, ctx *Context) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(args []string, ctx *Context) error

// Execute implements Handler
func (f HandlerFunc) Execute(args []string, ctx *Context) error {
	return f(args, ctx)
}

// Category constants for organizing commands
const (
	CategoryKeys       = "Key Management"
	CategoryVault      = "Vault"
	CategoryLedger     = "Ledger"
	CategoryAutomation = "Automation"
	CategoryGeneral    = "General"
)

// CategoryOrder is the order categories appear in help
var CategoryOrder = []string{
	CategoryVault,
	CategoryLedger,
	CategoryKeys,
	CategoryAutomation,
	CategoryGeneral,
}
