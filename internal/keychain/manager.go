// Copyright (c) 2025 SQLAI
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores the database DSN and completion API keys in the OS
// credential store so they never have to live in shell history or .env files.
//
// macOS uses the native `security` command, falling back to the keyring
// library. Windows uses Credential Manager. Linux uses the Secret Service
// (GNOME Keyring, KWallet) or pass.
package keychain

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

var (
	globalManager *Manager
	mu            sync.Mutex
)

// ErrNotFound is returned when no value is stored under a key.
var ErrNotFound = errors.New("keychain: item not found")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqlai"

// Keys used for storing secrets in the OS keychain.
const (
	KeyDBDSN   = "db_dsn"
	KeyAPIKeys = "completion_api_keys"
)

// backend is the minimal set of operations every credential store offers.
type backend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// Manager provides thread-safe access to the stored secrets.
type Manager struct {
	mu      sync.RWMutex
	backend backend
}

// NewManager opens the platform credential store.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if b, err := newSecurityBackend(); err == nil {
			return &Manager{backend: b}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return NewManagerWithKeyring(ring), nil
}

// NewManagerWithKeyring wraps an already opened keyring.
func NewManagerWithKeyring(ring keyring.Keyring) *Manager {
	return &Manager{backend: ringBackend{ring: ring}}
}

// GetManager returns the process-wide manager, opening it on first use.
// A failed open is retried on the next call.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}
	m, err := NewManager()
	if err != nil {
		return nil, err
	}
	globalManager = m
	return globalManager, nil
}

func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend, keyring.PassBackend}
	default:
		return nil, fmt.Errorf("secure storage not supported on %s", runtime.GOOS)
	}

	cfg := keyring.Config{
		ServiceName:             ServiceName,
		AllowedBackends:         allowed,
		PassPrefix:              ServiceName,
		WinCredPrefix:           ServiceName,
		LibSecretCollectionName: ServiceName,
		KWalletAppID:            ServiceName,
		KWalletFolder:           ServiceName,
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable; install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// SaveDBDSN stores the database DSN.
func (m *Manager) SaveDBDSN(dsn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Set(KeyDBDSN, dsn)
}

// LoadDBDSN returns the stored DSN or ErrNotFound.
func (m *Manager) LoadDBDSN() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nonEmpty(KeyDBDSN)
}

// ClearDB removes the stored DSN.
func (m *Manager) ClearDB() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Delete(KeyDBDSN)
}

// LoadAPIKeys returns the stored API keys in the order they were added.
// No stored keys is not an error.
func (m *Manager) LoadAPIKeys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadAPIKeys()
}

// AddAPIKey appends key to the stored list unless it is already present.
// It reports whether the list changed.
func (m *Manager) AddAPIKey(key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, errors.New("api key is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.loadAPIKeys()
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == key {
			return false, nil
		}
	}
	keys = append(keys, key)

	data, err := json.Marshal(keys)
	if err != nil {
		return false, err
	}
	if err := m.backend.Set(KeyAPIKeys, string(data)); err != nil {
		return false, err
	}
	return true, nil
}

// ClearAPIKeys removes every stored API key.
func (m *Manager) ClearAPIKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backend.Delete(KeyAPIKeys)
}

// ClearAll removes every secret this tool stores.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.backend.Delete(KeyDBDSN), m.backend.Delete(KeyAPIKeys))
}

func (m *Manager) loadAPIKeys() ([]string, error) {
	raw, err := m.nonEmpty(KeyAPIKeys)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("decode stored api keys: %w", err)
	}
	return keys, nil
}

func (m *Manager) nonEmpty(key string) (string, error) {
	v, err := m.backend.Get(key)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

type ringBackend struct {
	ring keyring.Keyring
}

func (r ringBackend) Set(key, value string) error {
	return r.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

func (r ringBackend) Get(key string) (string, error) {
	it, err := r.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(it.Data), nil
}

func (r ringBackend) Delete(key string) error {
	err := r.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
