// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package vault

import (
	"crypto/ed25519"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Signer is an owner identity: an address and the ability to sign for it.
type Signer interface {
	Address() types.Address
	Sign(message []byte) ([]byte, error)
}

// Ed25519Signer signs with an in-memory ed25519 private key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	addr types.Address
}

// NewEd25519Signer wraps a private key. The address is its public key.
func NewEd25519Signer(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid ed25519 private key size: expected %d bytes, got %d", ed25519.PrivateKeySize, len(priv))
	}
	var addr types.Address
	copy(addr[:], priv.Public().(ed25519.PublicKey))
	return &Ed25519Signer{priv: priv, addr: addr}, nil
}

// Address returns the signer's address.
func (s *Ed25519Signer) Address() types.Address {
	return s.addr
}

// Sign signs message.
func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

// Compile-time interface check
var _ Signer = (*Ed25519Signer)(nil)
