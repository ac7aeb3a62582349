// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package jsapi

import (
	"math"

	"github.com/dop251/goja"

	"github.com/aplane-algo/apvault/internal/util"
	"github.com/aplane-algo/apvault/internal/vault"
)

// requireArgs panics with a JS exception if the call has fewer than n arguments.
func (a *API) requireArgs(call goja.FunctionCall, n int, msg string) {
	if len(call.Arguments) < n {
		panic(a.runtime.NewTypeError(msg))
	}
}

// throw raises err as a JS Error with kind and code properties.
func (a *API) throw(err error) {
	obj, cerr := a.runtime.New(a.runtime.Get("Error"), a.runtime.ToValue(err.Error()))
	if cerr != nil {
		panic(a.runtime.NewGoError(err))
	}
	kind := vault.KindOf(err)
	_ = obj.Set("kind", string(kind))
	_ = obj.Set("code", vault.Code(err))
	panic(obj)
}

// maxSafeInteger is the largest integer a JS number holds exactly (2^53-1).
const maxSafeInteger = 1<<53 - 1

// amountArg converts a JS number or separator-formatted string to units.
// Numbers above 2^53-1 are rejected; larger amounts must be passed as strings.
func (a *API) amountArg(v goja.Value) uint64 {
	switch val := v.Export().(type) {
	case int64:
		if val < 0 {
			panic(a.runtime.NewTypeError("amount cannot be negative"))
		}
		if val > maxSafeInteger {
			panic(a.runtime.NewTypeError("amount exceeds Number.MAX_SAFE_INTEGER; pass it as a string"))
		}
		return uint64(val)
	case float64:
		if val < 0 || val != math.Trunc(val) {
			panic(a.runtime.NewTypeError("amount must be a non-negative whole number"))
		}
		if val > maxSafeInteger {
			panic(a.runtime.NewTypeError("amount exceeds Number.MAX_SAFE_INTEGER; pass it as a string"))
		}
		return uint64(val)
	case string:
		units, err := util.ParseUnits(val)
		if err != nil {
			panic(a.runtime.NewTypeError(err.Error()))
		}
		return units
	default:
		panic(a.runtime.NewTypeError("amount must be a number or string"))
	}
}
