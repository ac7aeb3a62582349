// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package scripting

import (
	"context"
	"errors"

	"github.com/dop251/goja"

	"github.com/aplane-algo/apvault/internal/jsapi"
)

// GojaRunner implements Runner using the Goja JavaScript interpreter.
type GojaRunner struct {
	vm     *goja.Runtime
	api    *jsapi.API
	output func(string)
}

// NewGojaRunner creates a new Goja-based script runner bound to env.
func NewGojaRunner(env jsapi.Env) *GojaRunner {
	r := &GojaRunner{
		output: func(s string) {}, // Default: discard output
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	// Output wrapper so SetOutput works after creation
	api := jsapi.NewAPI(env, func(msg string) {
		r.output(msg)
	})
	if err := api.RegisterAll(vm); err != nil {
		// Registration errors are programming bugs, not runtime errors
		panic("failed to register JS API: " + err.Error())
	}

	r.vm = vm
	r.api = api
	return r
}

// Run executes JavaScript code and returns the result.
func (r *GojaRunner) Run(code string) (Result, error) {
	return r.RunContext(context.Background(), code)
}

// RunContext executes code, interrupting it when ctx is done.
func (r *GojaRunner) RunContext(ctx context.Context, code string) (Result, error) {
	r.api.SetContext(ctx)
	defer r.api.SetContext(nil)

	stop := context.AfterFunc(ctx, func() {
		r.vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			// The interrupt may have fired; leave the runtime reusable
			r.vm.ClearInterrupt()
		}
	}()

	result, err := r.vm.RunString(code)
	if err != nil {
		var jsErr *goja.Exception
		if errors.As(err, &jsErr) {
			// String() keeps the message; Export() of an Error object is an empty map
			se := &ScriptError{Message: jsErr.String()}
			if obj, ok := jsErr.Value().(*goja.Object); ok {
				if kind := obj.Get("kind"); kind != nil && !goja.IsUndefined(kind) {
					se.Kind = kind.String()
				}
			}
			return Result{}, se
		}
		var intErr *goja.InterruptedError
		if errors.As(err, &intErr) {
			return Result{}, &ScriptError{Message: "script interrupted: " + intErr.String()}
		}
		return Result{}, err
	}

	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return Result{IsEmpty: true}, nil
	}
	return Result{Value: result.Export()}, nil
}

// SetOutput sets the function used for print() and log() output.
func (r *GojaRunner) SetOutput(fn func(string)) {
	if fn == nil {
		r.output = func(s string) {}
	} else {
		r.output = fn
	}
}

// Interrupt stops the currently running script.
// Safe to call from another goroutine (e.g., for timeout enforcement).
func (r *GojaRunner) Interrupt() {
	r.vm.Interrupt("script interrupted")
}

// Compile-time interface check
var _ Runner = (*GojaRunner)(nil)
