// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHandlerFunc(t *testing.T) {
	executed := false
	handler := HandlerFunc(func(args []string, ctx *Context) error {
		executed = true
		if len(args) != 2 || args[0] != "arg1" {
			t.Errorf("Execute() args = %v, want [arg1 arg2]", args)
		}
		return nil
	})

	if err := handler.Execute([]string{"arg1", "arg2"}, &Context{}); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if !executed {
		t.Error("Execute() should have been called")
	}
}

func TestCategoryOrderCoversCategories(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range CategoryOrder {
		if c == "" || seen[c] {
			t.Errorf("bad or duplicate category %q", c)
		}
		seen[c] = true
	}
	for _, c := range []string{CategoryKeys, CategoryVault, CategoryLedger, CategoryAutomation, CategoryGeneral} {
		if !seen[c] {
			t.Errorf("category %q missing from CategoryOrder", c)
		}
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantRaw  string
	}{
		{"", "", nil, ""},
		{"   ", "", nil, ""},
		{"help", "help", []string{}, ""},
		{"deposit alice 5_000_000", "deposit", []string{"alice", "5_000_000"}, "alice 5_000_000"},
		{"  withdraw\talice  ", "withdraw", []string{"alice"}, "alice"},
		{`import bob "w1 w2 w3"`, "import", []string{"bob", "w1 w2 w3"}, `bob "w1 w2 w3"`},
		{`js print("a b")`, "js", []string{"print(a b)"}, `print("a b")`},
		{`echo ""`, "echo", []string{""}, `""`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, args, raw := ParseLine(tt.input)
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if strings.Join(args, "|") != strings.Join(tt.wantArgs, "|") || len(args) != len(tt.wantArgs) {
				t.Errorf("args = %q, want %q", args, tt.wantArgs)
			}
			if raw != tt.wantRaw {
				t.Errorf("raw = %q, want %q", raw, tt.wantRaw)
			}
		})
	}
}

func TestShowHelp(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{
		Name: "deposit", Usage: "deposit <key> <amount>", Description: "Fund a vault",
		Category: CategoryVault, Handler: noop,
	})
	_ = r.Register(&Command{
		Name: "quit", Aliases: []string{"exit"}, Usage: "quit", Description: "Leave",
		Category: CategoryGeneral, Handler: noop,
	})

	var buf bytes.Buffer
	ShowHelp(&buf, r)
	out := buf.String()
	if !strings.Contains(out, "Vault:") || !strings.Contains(out, "deposit <key> <amount>") {
		t.Errorf("help output missing vault section:\n%s", out)
	}
	if strings.Index(out, "Vault:") > strings.Index(out, "General:") {
		t.Error("categories should follow CategoryOrder")
	}
	if !strings.Contains(out, "(aliases: exit)") {
		t.Error("help output should list aliases")
	}

	buf.Reset()
	cmd, _ := r.Lookup("exit")
	ShowCommandHelp(&buf, cmd)
	if !strings.Contains(buf.String(), "Command: quit") {
		t.Errorf("command help = %q", buf.String())
	}
}

var noop = HandlerFunc(func([]string, *Context) error { return nil })

func TestErrExit(t *testing.T) {
	wrapped := errors.Join(ErrExit)
	if !errors.Is(wrapped, ErrExit) {
		t.Error("ErrExit should survive wrapping")
	}
}
