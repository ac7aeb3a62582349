// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"fmt"
	"math/bits"
)

// Params are the rent rules that determine the minimum persistence floor.
type Params struct {
	AccountOverhead  uint64 `yaml:"account_overhead" description:"Bytes charged per account on top of its data" default:"128"`
	UnitsPerByteYear uint64 `yaml:"units_per_byte_year" description:"Rent in native units per byte per year" default:"3480"`
	ExemptionYears   uint64 `yaml:"exemption_years" description:"Years of prepaid rent that make an account persistent" default:"2"`
}

// DefaultParams returns the standard rent rules: an empty account must hold
// 890_880 units to persist.
func DefaultParams() Params {
	return Params{
		AccountOverhead:  128,
		UnitsPerByteYear: 3480,
		ExemptionYears:   2,
	}
}

// Validate checks that the parameters produce a positive, non-overflowing floor.
func (p Params) Validate() error {
	if p.UnitsPerByteYear == 0 || p.ExemptionYears == 0 {
		return fmt.Errorf("%w: units_per_byte_year and exemption_years must be positive", ErrInvalidParams)
	}
	hi, perYear := bits.Mul64(p.AccountOverhead, p.UnitsPerByteYear)
	if hi != 0 {
		return fmt.Errorf("%w: per-account rent overflows", ErrInvalidParams)
	}
	if hi, _ := bits.Mul64(perYear, p.ExemptionYears); hi != 0 {
		return fmt.Errorf("%w: exemption amount overflows", ErrInvalidParams)
	}
	return nil
}

// MinimumBalance returns the balance an account with the given data size must
// hold to persist. Results saturate at the maximum uint64.
func (p Params) MinimumBalance(space int) uint64 {
	if space < 0 {
		space = 0
	}
	size, carry := bits.Add64(p.AccountOverhead, uint64(space), 0)
	if carry != 0 {
		return ^uint64(0)
	}
	hi, perYear := bits.Mul64(size, p.UnitsPerByteYear)
	if hi != 0 {
		return ^uint64(0)
	}
	hi, total := bits.Mul64(perYear, p.ExemptionYears)
	if hi != 0 {
		return ^uint64(0)
	}
	return total
}
