// Package security keeps transfer credentials out of config files and logs.
package security

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

// SFTPPasswordKey is the keyring entry for a login password.
func SFTPPasswordKey(user, host string, port int) string {
	return fmt.Sprintf(keySFTPPasswordFmt, user, host, port)
}

// SFTPPassphraseKey is the keyring entry for a private key passphrase.
func SFTPPassphraseKey(keyPath string) string {
	return fmt.Sprintf(keySFTPPassphraseFmt, keyPath)
}

// ObjectStoreSecretKey is the keyring entry for an access key secret.
func ObjectStoreSecretKey(accessKeyID string) string {
	return fmt.Sprintf(keyObjectStoreFmt, accessKeyID)
}

// KeyringStore reads and writes secrets in the OS keyring (macOS Keychain,
// Linux Secret Service, Windows Credential Manager).
type KeyringStore struct {
	enabled bool
	mu      sync.RWMutex
}

// NewKeyringStore probes the system keyring. When it is unavailable the
// store is disabled and every call reports so.
func NewKeyringStore() *KeyringStore {
	ks := &KeyringStore{enabled: true}

	if err := keyring.Set(KeyringService, keyringProbeKey, "probe"); err != nil {
		slog.Debug("keyring not available",
			slog.String("error", err.Error()),
		)
		ks.enabled = false
		return ks
	}
	_ = keyring.Delete(KeyringService, keyringProbeKey)

	slog.Debug("keyring storage enabled")
	return ks
}

// IsEnabled returns true if the keyring is available and enabled.
func (ks *KeyringStore) IsEnabled() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.enabled
}

// SetEnabled allows enabling/disabling keyring usage.
func (ks *KeyringStore) SetEnabled(enabled bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.enabled = enabled
}

// Store saves secret under key.
func (ks *KeyringStore) Store(key string, secret []byte) error {
	if !ks.IsEnabled() {
		return errors.New(errKeyringNotAvailable)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	if err := keyring.Set(KeyringService, key, encoded); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	slog.Debug("stored secret in keyring", slog.String("entry", key))
	return nil
}

// Get returns the secret under key, or nil when there is none.
func (ks *KeyringStore) Get(key string) ([]byte, error) {
	if !ks.IsEnabled() {
		return nil, errors.New(errKeyringNotAvailable)
	}

	encoded, err := keyring.Get(KeyringService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get secret: %w", err)
	}

	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	return secret, nil
}

// Delete removes the secret under key. A missing entry is not an error.
func (ks *KeyringStore) Delete(key string) error {
	if !ks.IsEnabled() {
		return errors.New(errKeyringNotAvailable)
	}

	if err := keyring.Delete(KeyringService, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}
