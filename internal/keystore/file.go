// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	algocrypto "github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apvault/internal/crypto"
)

const keyFileExt = ".key"

// keyFile is the on-disk form of one owner key.
type keyFile struct {
	Name    string           `json:"name"`
	Address string           `json:"address"`
	KeyType string           `json:"key_type"`
	Created string           `json:"created"`
	Sealed  *crypto.Envelope `json:"sealed"` // ed25519 seed
}

// FileKeyStore keeps owner keys as sealed files in one directory.
// It is safe for concurrent use.
type FileKeyStore struct {
	dir string

	mu        sync.RWMutex
	masterKey []byte
}

// Option configures a FileKeyStore
type Option func(*options)

type options struct {
	kdf crypto.KDFParams
}

// WithKDFParams sets the Argon2id parameters used when a new keystore is
// initialized. Existing keystores keep the parameters they were created with.
func WithKDFParams(p crypto.KDFParams) Option {
	return func(o *options) {
		o.kdf = p
	}
}

// Open unlocks the keystore in dir with passphrase, initializing it on first use.
func Open(dir string, passphrase []byte, opts ...Option) (*FileKeyStore, error) {
	o := options{kdf: crypto.DefaultKDFParams()}
	for _, opt := range opts {
		opt(&o)
	}

	meta, err := crypto.LoadKeystoreMetadata(dir)
	var masterKey []byte
	switch {
	case errors.Is(err, crypto.ErrNotInitialized):
		_, masterKey, err = crypto.CreateKeystoreMetadata(dir, passphrase, o.kdf)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keystore: %w", err)
		}
	case err != nil:
		return nil, err
	default:
		masterKey, err = meta.VerifyAndDeriveMasterKey(passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to unlock keystore: %w", err)
		}
	}

	return &FileKeyStore{dir: dir, masterKey: masterKey}, nil
}

// Initialized reports whether dir already holds a keystore.
func Initialized(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, crypto.MetadataFile))
	return err == nil
}

// Dir returns the keys directory.
func (f *FileKeyStore) Dir() string {
	return f.dir
}

// Lock wipes the master key. Every later call fails with ErrStoreLocked.
func (f *FileKeyStore) Lock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	crypto.ZeroBytes(f.masterKey)
	f.masterKey = nil
}

// Generate creates a random key and returns it with its 25-word mnemonic.
func (f *FileKeyStore) Generate(name string) (*Key, string, error) {
	account := algocrypto.GenerateAccount()
	words, err := mnemonic.FromPrivateKey(account.PrivateKey)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	key, err := f.store(name, account.PrivateKey)
	if err != nil {
		return nil, "", err
	}
	return key, words, nil
}

// Import stores the key encoded by a 25-word mnemonic.
func (f *FileKeyStore) Import(name, words string) (*Key, error) {
	private, err := mnemonic.ToPrivateKey(strings.Join(strings.Fields(words), " "))
	if err != nil {
		return nil, fmt.Errorf("failed to derive private key from mnemonic: %w", err)
	}
	return f.store(name, private)
}

func (f *FileKeyStore) store(name string, private ed25519.PrivateKey) (*Key, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.masterKey == nil {
		return nil, ErrStoreLocked
	}

	key := newKey(name, private)
	existing, err := f.list()
	if err != nil {
		return nil, err
	}
	for _, m := range existing {
		if m.Name == name {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, name)
		}
		if m.Address == key.Address() {
			return nil, fmt.Errorf("%w: %s is already stored as %s", ErrKeyExists, key.Address(), m.Name)
		}
	}

	sealed, err := crypto.Seal(private.Seed(), f.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to seal key: %w", err)
	}
	data, err := json.MarshalIndent(keyFile{
		Name:    name,
		Address: key.Address().String(),
		KeyType: KeyTypeEd25519,
		Created: time.Now().UTC().Format(time.RFC3339),
		Sealed:  sealed,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key file: %w", err)
	}

	path := f.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return key, nil
}

// Get unseals the named key. The caller should Zero it when done.
func (f *FileKeyStore) Get(name string) (*Key, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.masterKey == nil {
		return nil, ErrStoreLocked
	}

	kf, err := readKeyFile(f.path(name))
	if err != nil {
		return nil, err
	}
	seed, err := crypto.Open(kf.Sealed, f.masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal key %s: %w", name, err)
	}
	defer crypto.ZeroBytes(seed)
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key %s: invalid seed length %d", name, len(seed))
	}

	key := newKey(kf.Name, ed25519.NewKeyFromSeed(seed))
	if key.Address().String() != kf.Address {
		key.Zero()
		return nil, fmt.Errorf("key %s: stored address does not match key material", name)
	}
	return key, nil
}

// Export returns the mnemonic of the named key.
func (f *FileKeyStore) Export(name string) (string, error) {
	key, err := f.Get(name)
	if err != nil {
		return "", err
	}
	defer key.Zero()
	return mnemonic.FromPrivateKey(key.private)
}

// List returns metadata for all keys, sorted by name. It needs no decryption.
func (f *FileKeyStore) List() ([]KeyMetadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.list()
}

func (f *FileKeyStore) list() ([]KeyMetadata, error) {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*"+keyFileExt))
	if err != nil {
		return nil, err
	}

	result := make([]KeyMetadata, 0, len(matches))
	for _, path := range matches {
		kf, err := readKeyFile(path)
		if err != nil {
			return nil, err
		}
		addr, err := types.DecodeAddress(kf.Address)
		if err != nil {
			return nil, fmt.Errorf("key file %s: %w", path, err)
		}
		meta := KeyMetadata{
			Name:     kf.Name,
			Address:  addr,
			KeyType:  kf.KeyType,
			FilePath: path,
		}
		if t, err := time.Parse(time.RFC3339, kf.Created); err == nil {
			meta.CreatedAt = t
		}
		result = append(result, meta)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Lookup returns the metadata of the named key.
func (f *FileKeyStore) Lookup(name string) (*KeyMetadata, error) {
	keys, err := f.List()
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].Name == name {
			return &keys[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, name)
}

// Delete removes the named key file.
func (f *FileKeyStore) Delete(name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, name)
		}
		return fmt.Errorf("failed to delete key %s: %w", name, err)
	}
	return nil
}

func (f *FileKeyStore) path(name string) string {
	return filepath.Join(f.dir, name+keyFileExt)
}

func readKeyFile(path string) (*keyFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, strings.TrimSuffix(filepath.Base(path), keyFileExt))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse key file %s: %w", path, err)
	}
	if kf.KeyType != KeyTypeEd25519 {
		return nil, fmt.Errorf("key file %s: unsupported key type %q", path, kf.KeyType)
	}
	return &kf, nil
}
