package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zalando/go-keyring"

	"credvault/internal/logging"
)

const masterKeyAccount = "master-key"

// KeyringBackend keeps a random 32-byte master key in the OS keyring
// (macOS Keychain, Secret Service on Linux, Credential Manager on Windows)
// and seals values with NaCl secretbox under that key.
type KeyringBackend struct {
	service string
	logger  *logging.Logger

	mu  sync.Mutex
	key *[KeySize]byte
}

// NewKeyring creates a keyring backend scoped to service.
func NewKeyring(service string, logger *logging.Logger) *KeyringBackend {
	return &KeyringBackend{service: service, logger: logger}
}

// Name implements Backend.
func (k *KeyringBackend) Name() string { return "keyring" }

// IsAvailable probes the keyring without creating a master key.
func (k *KeyringBackend) IsAvailable() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		return true
	}
	_, err := keyring.Get(k.service, masterKeyAccount)
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return true
	}
	k.logger.Warn("encryption.keyring.unavailable", "OS keyring is not reachable", map[string]interface{}{
		"service": k.service,
		"error":   err.Error(),
	})
	return false
}

// Encrypt implements Backend. The master key is created on first use.
func (k *KeyringBackend) Encrypt(plaintext string) ([]byte, error) {
	key, err := k.masterKey(true)
	if err != nil {
		return nil, err
	}
	sealed, err := seal([]byte(plaintext), key)
	if err != nil {
		return nil, err
	}
	return append([]byte{versionSecretbox}, sealed...), nil
}

// Decrypt implements Backend.
func (k *KeyringBackend) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) == 0 || ciphertext[0] != versionSecretbox {
		return "", fmt.Errorf("%w: unrecognized ciphertext format", ErrDecryption)
	}
	key, err := k.masterKey(false)
	if err != nil {
		return "", err
	}
	plaintext, err := open(ciphertext[1:], key)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (k *KeyringBackend) masterKey(create bool) (*[KeySize]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.key != nil {
		return k.key, nil
	}

	encoded, err := keyring.Get(k.service, masterKeyAccount)
	switch {
	case err == nil:
		key, decodeErr := decodeKey(encoded)
		if decodeErr != nil {
			return nil, decodeErr
		}
		k.key = key
		return key, nil
	case errors.Is(err, keyring.ErrNotFound):
		if !create {
			return nil, fmt.Errorf("%w: no master key in keyring", ErrDecryption)
		}
	default:
		return nil, errors.Join(ErrUnavailable, err)
	}

	var key [KeySize]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := keyring.Set(k.service, masterKeyAccount, base64.StdEncoding.EncodeToString(key[:])); err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	k.logger.Info("encryption.keyring.key_created", "Created vault master key", map[string]interface{}{
		"service": k.service,
	})
	k.key = &key
	return k.key, nil
}

func decodeKey(encoded string) (*[KeySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != KeySize {
		return nil, fmt.Errorf("%w: master key in keyring is malformed", ErrDecryption)
	}
	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}
