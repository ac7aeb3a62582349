// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package scripting runs vault automation scripts.
package scripting

// ScriptError represents an error that occurred during script execution.
type ScriptError struct {
	Message string
	// Kind is the vault error kind carried by the thrown Error, if any
	Kind string
}

func (e *ScriptError) Error() string {
	return e.Message
}

// Result holds the outcome of running a script.
type Result struct {
	// Value is the exported result value (nil if IsEmpty is true)
	Value interface{}
	// IsEmpty is true if the script returned undefined/null/void
	IsEmpty bool
}

// Runner is the VM abstraction for executing scripts. The runtime persists
// between calls so REPL lines can build on each other.
type Runner interface {
	// Run executes the given code and returns the result.
	Run(code string) (Result, error)

	// SetOutput sets the function used for print() output.
	SetOutput(fn func(string))

	// Interrupt stops the currently running script.
	// Safe to call from another goroutine.
	Interrupt()
}
