// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"strings"
	"testing"
)

// MockHandler implements Handler for testing
type MockHandler struct {
	executeFunc func(args []string, ctx *Context) error
}

func (h *MockHandler) Execute(args []string, ctx *Context) error {
	if h.executeFunc != nil {
		return h.executeFunc(args, ctx)
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.commands == nil {
		t.Error("NewRegistry() commands map is nil")
	}
	if r.primary == nil {
		t.Error("NewRegistry() primary slice is nil")
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	cmd := &Command{
		Name:        "test",
		Aliases:     []string{"t"},
		Usage:       "test [args]",
		Description: "Test command",
		Category:    CategoryVault,
		Handler:     &MockHandler{},
	}

	err := r.Register(cmd)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Verify command is registered by name
	got, ok := r.Lookup("test")
	if !ok {
		t.Error("Register() command not found by name")
	}
	if got.Name != "test" {
		t.Errorf("Register() name = %v, want test", got.Name)
	}

	// Verify command is registered by alias
	got, ok = r.Lookup("t")
	if !ok {
		t.Error("Register() command not found by alias")
	}
	if got.Name != "test" {
		t.Errorf("Register() alias lookup name = %v, want test", got.Name)
	}
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()

	cmd1 := &Command{
		Name:    "test",
		Handler: &MockHandler{},
	}
	cmd2 := &Command{
		Name:    "test",
		Handler: &MockHandler{},
	}

	_ = r.Register(cmd1)
	err := r.Register(cmd2)
	if err == nil {
		t.Error("Register() expected error for duplicate command name")
	}
}

func TestRegistry_Register_AliasConflict(t *testing.T) {
	r := NewRegistry()

	cmd1 := &Command{
		Name:    "test",
		Aliases: []string{"t"},
		Handler: &MockHandler{},
	}
	cmd2 := &Command{
		Name:    "other",
		Aliases: []string{"t"}, // Conflicts with cmd1's alias
		Handler: &MockHandler{},
	}

	_ = r.Register(cmd1)
	err := r.Register(cmd2)
	if err == nil {
		t.Error("Register() expected error for conflicting alias")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	cmd := &Command{
		Name:    "test",
		Aliases: []string{"t", "tst"},
		Handler: &MockHandler{},
	}
	_ = r.Register(cmd)

	tests := []struct {
		name    string
		lookup  string
		wantOK  bool
		wantCmd string
	}{
		{"by name", "test", true, "test"},
		{"by alias t", "t", true, "test"},
		{"by alias tst", "tst", true, "test"},
		{"not found", "notexist", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Lookup(tt.lookup)
			if ok != tt.wantOK {
				t.Errorf("Lookup() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Name != tt.wantCmd {
				t.Errorf("Lookup() name = %v, want %v", got.Name, tt.wantCmd)
			}
		})
	}
}

func TestRegistry_All(t *testing.T) {
	r := NewRegistry()

	cmd1 := &Command{Name: "alpha", Handler: &MockHandler{}}
	cmd2 := &Command{Name: "beta", Handler: &MockHandler{}}
	cmd3 := &Command{Name: "gamma", Handler: &MockHandler{}}

	_ = r.Register(cmd1)
	_ = r.Register(cmd2)
	_ = r.Register(cmd3)

	all := r.All()
	if len(all) != 3 {
		t.Errorf("All() count = %v, want 3", len(all))
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	r := NewRegistry()

	cmd1 := &Command{Name: "deposit", Category: CategoryVault, Handler: &MockHandler{}}
	cmd2 := &Command{Name: "balance", Category: CategoryLedger, Handler: &MockHandler{}}
	cmd3 := &Command{Name: "airdrop", Category: CategoryLedger, Handler: &MockHandler{}}

	_ = r.Register(cmd1)
	_ = r.Register(cmd2)
	_ = r.Register(cmd3)

	categories := r.ByCategory()

	if len(categories[CategoryVault]) != 1 {
		t.Errorf("ByCategory() Vault count = %v, want 1", len(categories[CategoryVault]))
	}
	if len(categories[CategoryLedger]) != 2 {
		t.Errorf("ByCategory() Ledger count = %v, want 2", len(categories[CategoryLedger]))
	}

	// Verify sorting within category
	ledgerCmds := categories[CategoryLedger]
	if len(ledgerCmds) >= 2 && ledgerCmds[0].Name > ledgerCmds[1].Name {
		t.Error("ByCategory() commands should be sorted alphabetically within category")
	}
}

func TestRegistry_Register_AliasConflictLeavesNoTrace(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{Name: "status", Aliases: []string{"s"}, Handler: &MockHandler{}})

	err := r.Register(&Command{Name: "show", Aliases: []string{"s"}, Handler: &MockHandler{}})
	if err == nil {
		t.Fatal("Register() expected error for conflicting alias")
	}
	if _, ok := r.Lookup("show"); ok {
		t.Error("a rejected command must not be registered under its name")
	}
	if len(r.All()) != 1 {
		t.Errorf("All() count = %v, want 1", len(r.All()))
	}
}

func TestRegistry_Register_NoHandler(t *testing.T) {
	if err := NewRegistry().Register(&Command{Name: "x"}); err == nil {
		t.Error("Register() expected error for a command without handler")
	}
}

func TestRegistry_Dispatch(t *testing.T) {
	r := NewRegistry()
	var got []string
	_ = r.Register(&Command{
		Name:    "deposit",
		Aliases: []string{"dep"},
		Usage:   "deposit <key> <amount>",
		MinArgs: 2,
		Handler: &MockHandler{executeFunc: func(args []string, ctx *Context) error {
			got = args
			return nil
		}},
	})

	if err := r.Dispatch("dep", []string{"alice", "5"}, &Context{}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(got) != 2 || got[0] != "alice" {
		t.Errorf("handler args = %v", got)
	}

	if err := r.Dispatch("deposit", []string{"alice"}, &Context{}); err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("Dispatch() with too few args error = %v, want usage", err)
	}
	if err := r.Dispatch("nope", nil, &Context{}); err == nil {
		t.Error("Dispatch() of unknown command should fail")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&Command{Name: "withdraw", Aliases: []string{"wd"}, Handler: &MockHandler{}})
	_ = r.Register(&Command{Name: "deposit", Handler: &MockHandler{}})

	if got := strings.Join(r.Names(), ","); got != "deposit,wd,withdraw" {
		t.Errorf("Names() = %s, want deposit,wd,withdraw", got)
	}
}
