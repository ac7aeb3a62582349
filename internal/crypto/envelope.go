// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package crypto seals key material at rest. A keystore-wide master key is
// derived once with Argon2id from the passphrase and the salt recorded in the
// .keystore metadata file; every key file is then sealed with AES-256-GCM
// under that master key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	// MetadataFile is the keystore metadata file name inside the keys directory
	MetadataFile = ".keystore"

	envelopeVersion = 1
	masterSaltLen   = 32
	masterKeyLen    = 32 // AES-256
	checkPlaintext  = "APVAULT_OK"
)

var (
	// ErrIncorrectPassphrase indicates the passphrase does not open the keystore
	ErrIncorrectPassphrase = errors.New("incorrect passphrase")

	// ErrNotInitialized indicates the .keystore metadata file is missing
	ErrNotInitialized = errors.New("keystore not initialized")
)

// KDFParams are the Argon2id cost parameters recorded in the keystore metadata.
type KDFParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

// DefaultKDFParams returns the OWASP-recommended Argon2id parameters.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

func (p KDFParams) validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("invalid argon2id parameters %+v", p)
	}
	return nil
}

// DeriveMasterKey derives the master key from passphrase and salt.
// Caller is responsible for zeroing the returned key.
func DeriveMasterKey(passphrase, salt []byte, params KDFParams) []byte {
	return argon2.IDKey(passphrase, salt, params.Time, params.MemoryKiB, params.Threads, masterKeyLen)
}

// KeystoreMetadata holds keystore-wide encryption metadata.
type KeystoreMetadata struct {
	Version int       `json:"version"`
	Salt    string    `json:"salt"`  // base64 master salt
	Check   string    `json:"check"` // base64 nonce||AES-GCM(checkPlaintext)
	KDF     KDFParams `json:"kdf"`
	Created string    `json:"created"`
}

// CreateKeystoreMetadata writes a fresh .keystore file into dir and returns
// the metadata together with the derived master key.
func CreateKeystoreMetadata(dir string, passphrase []byte, params KDFParams) (*KeystoreMetadata, []byte, error) {
	if err := params.validate(); err != nil {
		return nil, nil, err
	}

	salt := make([]byte, masterSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("failed to generate master salt: %w", err)
	}

	masterKey := DeriveMasterKey(passphrase, salt, params)
	check, err := seal(masterKey, []byte(checkPlaintext))
	if err != nil {
		ZeroBytes(masterKey)
		return nil, nil, fmt.Errorf("failed to create check value: %w", err)
	}

	meta := &KeystoreMetadata{
		Version: envelopeVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Check:   base64.StdEncoding.EncodeToString(check),
		KDF:     params,
		Created: time.Now().UTC().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		ZeroBytes(masterKey)
		return nil, nil, fmt.Errorf("failed to marshal keystore metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		ZeroBytes(masterKey)
		return nil, nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0600); err != nil {
		ZeroBytes(masterKey)
		return nil, nil, fmt.Errorf("failed to write keystore metadata: %w", err)
	}

	return meta, masterKey, nil
}

// LoadKeystoreMetadata reads the .keystore file in dir. It returns
// ErrNotInitialized if the file does not exist.
func LoadKeystoreMetadata(dir string) (*KeystoreMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore metadata: %w", err)
	}

	var meta KeystoreMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse keystore metadata: %w", err)
	}
	if meta.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", meta.Version)
	}
	return &meta, nil
}

// VerifyAndDeriveMasterKey derives the master key and checks it against the
// recorded check value.
func (m *KeystoreMetadata) VerifyAndDeriveMasterKey(passphrase []byte) ([]byte, error) {
	if err := m.KDF.validate(); err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master salt: %w", err)
	}
	check, err := base64.StdEncoding.DecodeString(m.Check)
	if err != nil {
		return nil, fmt.Errorf("failed to decode check value: %w", err)
	}

	masterKey := DeriveMasterKey(passphrase, salt, m.KDF)
	plaintext, err := open(masterKey, check)
	if err != nil || subtle.ConstantTimeCompare(plaintext, []byte(checkPlaintext)) != 1 {
		ZeroBytes(masterKey)
		return nil, ErrIncorrectPassphrase
	}
	return masterKey, nil
}

// Envelope is the on-disk form of a sealed payload.
type Envelope struct {
	EnvelopeVersion int    `json:"envelope_version"`
	Nonce           string `json:"nonce"`
	Ciphertext      string `json:"ciphertext"`
}

// Seal encrypts plaintext under masterKey.
func Seal(plaintext, masterKey []byte) (*Envelope, error) {
	sealed, err := seal(masterKey, plaintext)
	if err != nil {
		return nil, err
	}
	nonceSize := len(sealed) - len(plaintext) - 16
	return &Envelope{
		EnvelopeVersion: envelopeVersion,
		Nonce:           base64.StdEncoding.EncodeToString(sealed[:nonceSize]),
		Ciphertext:      base64.StdEncoding.EncodeToString(sealed[nonceSize:]),
	}, nil
}

// Open decrypts env with masterKey.
func Open(env *Envelope, masterKey []byte) ([]byte, error) {
	if env == nil || env.EnvelopeVersion != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope")
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	plaintext, err := open(masterKey, append(nonce, ciphertext...))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}
	return plaintext, nil
}

// seal returns nonce || ciphertext || tag.
func seal(key, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("sealed data too short")
	}
	return gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}
