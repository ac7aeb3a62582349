// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package derive computes program-derived addresses: 32-byte addresses that are
// a pure function of a program id and a list of seeds, and that are guaranteed
// not to be valid ed25519 public keys. Nobody holds a private key for such an
// address, so the only way to move its funds is to present the seeds that
// reproduce it (a Proof).
package derive

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

const (
	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16

	// MaxSeedLen is the maximum length of a single seed in bytes.
	MaxSeedLen = 32

	// pdaMarker is appended after the program id so derived digests never
	// collide with other SHA-512/256 uses of the same input bytes.
	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrDerivationExhausted is returned when none of the 256 bump values
	// produces an address off the ed25519 curve.
	ErrDerivationExhausted = errors.New("address derivation exhausted all bump seeds")

	// ErrOnCurve indicates the seeds hash to a valid ed25519 point, which could
	// have a private key and therefore cannot serve as a derived address.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")

	// ErrInvalidSeeds indicates too many seeds or an oversized seed.
	ErrInvalidSeeds = errors.New("invalid seeds")
)

// CreateAddress hashes the seeds together with the program id.
// It fails with ErrOnCurve when the result is a valid ed25519 point.
func CreateAddress(seeds [][]byte, programID types.Address) (types.Address, error) {
	return createAddress(seeds, programID, IsOnCurve)
}

// FindAddress searches bump values from 255 down to 0 and returns the first
// address (and its bump) that is off the curve. The bump is appended to seeds
// as a final one-byte seed.
func FindAddress(seeds [][]byte, programID types.Address) (types.Address, byte, error) {
	return findAddress(seeds, programID, IsOnCurve)
}

func findAddress(seeds [][]byte, programID types.Address, onCurve func([]byte) bool) (types.Address, byte, error) {
	if len(seeds) >= MaxSeeds {
		return types.Address{}, 0, fmt.Errorf("%w: %d seeds leaves no room for a bump (max %d)", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	bump := []byte{0}
	withBump[len(seeds)] = bump

	for b := 255; b >= 0; b-- {
		bump[0] = byte(b)
		addr, err := createAddress(withBump, programID, onCurve)
		if err == nil {
			return addr, byte(b), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return types.Address{}, 0, err
		}
	}
	return types.Address{}, 0, ErrDerivationExhausted
}

func createAddress(seeds [][]byte, programID types.Address, onCurve func([]byte) bool) (types.Address, error) {
	if len(seeds) > MaxSeeds {
		return types.Address{}, fmt.Errorf("%w: %d seeds (max %d)", ErrInvalidSeeds, len(seeds), MaxSeeds)
	}

	h := sha512.New512_256()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return types.Address{}, fmt.Errorf("%w: seed %d is %d bytes (max %d)", ErrInvalidSeeds, i, len(seed), MaxSeedLen)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr types.Address
	copy(addr[:], h.Sum(nil))
	if onCurve(addr[:]) {
		return types.Address{}, ErrOnCurve
	}
	return addr, nil
}

// IsOnCurve returns true if the 32-byte value decodes to a valid edwards25519
// curve point (i.e., could be an ed25519 public key), and false otherwise.
func IsOnCurve(address []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(address)
	return err == nil
}
