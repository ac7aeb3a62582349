// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/apvault/internal/command"
)

const prompt = "\033[32mapvault>\033[0m "

// execLine parses and runs one REPL line. It returns command.ErrExit to stop.
func (a *app) execLine(ctx context.Context, line string) error {
	name, args, raw := command.ParseLine(line)
	if name == "" {
		return nil
	}
	cctx := &command.Context{Context: ctx, Out: a.out, RawArgs: raw}
	return a.registry.Dispatch(name, args, cctx)
}

// handleLine runs a line and prints any failure. It reports whether to keep going.
func (a *app) handleLine(ctx context.Context, line string) bool {
	err := a.execLine(ctx, line)
	if errors.Is(err, command.ErrExit) {
		return false
	}
	if err != nil {
		a.println(a.formatError(err))
	}
	return true
}

// keyNames feeds the completer with stored key names.
func (a *app) keyNames(string) []string {
	keys, err := a.keys.List()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
	}
	return names
}

func (a *app) completer() *readline.PrefixCompleter {
	withKey := map[string]bool{
		"deposit": true, "withdraw": true, "status": true, "derive": true,
		"balance": true, "airdrop": true, "export": true, "delete": true,
	}
	var items []readline.PrefixCompleterInterface
	for _, name := range a.registry.Names() {
		if withKey[name] {
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(a.keyNames)))
			continue
		}
		if name == "help" {
			var cmds []readline.PrefixCompleterInterface
			for _, n := range a.registry.Names() {
				cmds = append(cmds, readline.PcItem(n))
			}
			items = append(items, readline.PcItem(name, cmds...))
			continue
		}
		items = append(items, readline.PcItem(name))
	}
	return readline.NewPrefixCompleter(items...)
}

func (a *app) startBasicREPL(ctx context.Context) {
	a.println("Running in basic mode (no history/completion)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		a.printf("apvault> ")
		if !scanner.Scan() {
			break
		}
		if !a.handleLine(ctx, scanner.Text()) {
			break
		}
	}
}

func (a *app) startREPL(ctx context.Context) {
	a.println(a.styles.Title("apvault - custodial vault shell"))
	a.println("Type 'help' for available commands or 'quit' to exit")
	a.printf("Program: %s  Floor: %s units\n",
		a.styles.Address(a.manager.ProgramID().String()), a.styles.Amount(a.manager.Floor()))
	a.printf("Keys: %s\n", a.keys.Dir())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       filepath.Join(a.dataDir, ".apvault_history"),
		HistoryLimit:      1000,
		AutoComplete:      a.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		a.printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		a.startBasicREPL(ctx)
		return
	}
	defer func() {
		_ = rl.Close()
	}()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					a.println("Use 'quit' or 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				a.println("\nGoodbye!")
				break
			}
			a.printf("Error reading input: %v\n", err)
			continue
		}
		if !a.handleLine(ctx, line) {
			break
		}
	}
}

// runJS runs a single expression and prints its value. It returns the exit code.
func (a *app) runJS(ctx context.Context, expr string) int {
	result, err := a.runner.RunContext(ctx, expr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if !result.IsEmpty {
		a.printf("%v\n", result.Value)
	}
	return 0
}

// runJSFile runs a script file, or stdin when path is "-".
func (a *app) runJSFile(ctx context.Context, path string) int {
	var content []byte
	var err error
	if path == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read script: %v\n", err)
		return 1
	}
	if _, err := a.runner.RunContext(ctx, string(content)); err != nil {
		fmt.Fprintf(os.Stderr, "Script error: %v\n", err)
		return 1
	}
	return 0
}
