// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keystore stores vault owner identities.
//
// Owners are ed25519 keys. Each key lives in its own file under the keys
// directory, sealed with the keystore master key (see internal/crypto).
// The public address is kept in clear so keys can be listed while locked.
package keystore

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apvault/internal/crypto"
)

// Common keystore errors
var (
	// ErrKeyNotFound indicates the requested key does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyExists indicates a key with that name or address already exists
	ErrKeyExists = errors.New("key already exists")

	// ErrInvalidName indicates a key name outside [A-Za-z0-9_-]{1,32}
	ErrInvalidName = errors.New("invalid key name")

	// ErrStoreLocked indicates the master key has been wiped
	ErrStoreLocked = errors.New("keystore is locked")

	// ErrKeyZeroed indicates a Key was used after Zero
	ErrKeyZeroed = errors.New("key material has been zeroed")
)

// KeyTypeEd25519 is the only key type owners use.
const KeyTypeEd25519 = "ed25519"

// KeyMetadata contains non-sensitive information about a stored key
type KeyMetadata struct {
	Name      string
	Address   types.Address
	KeyType   string
	CreatedAt time.Time
	FilePath  string
}

// Key is an unlocked owner key. It signs vault instructions.
type Key struct {
	Name    string
	address types.Address
	private ed25519.PrivateKey
}

func newKey(name string, private ed25519.PrivateKey) *Key {
	k := &Key{Name: name, private: private}
	copy(k.address[:], private.Public().(ed25519.PublicKey))
	return k
}

// Address returns the owner address (the ed25519 public key).
func (k *Key) Address() types.Address {
	return k.address
}

// Sign signs msg with the owner key.
func (k *Key) Sign(msg []byte) ([]byte, error) {
	if len(k.private) != ed25519.PrivateKeySize {
		return nil, ErrKeyZeroed
	}
	return ed25519.Sign(k.private, msg), nil
}

// Zero wipes the private key. The Key cannot sign afterwards.
func (k *Key) Zero() {
	crypto.ZeroBytes(k.private)
	k.private = nil
}

func (k *Key) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.address)
}

// ValidName reports whether name is usable as a key name.
func ValidName(name string) bool {
	if len(name) == 0 || len(name) > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
