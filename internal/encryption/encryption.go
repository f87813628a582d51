// Package encryption adapts platform-native secret protection to a single
// interface. Ciphertext produced here is bound to the local machine and user.
package encryption

import (
	"errors"
)

// Backend is the platform encryption primitive used by the credential store.
type Backend interface {
	// Name identifies the implementation ("keyring", "dpapi").
	Name() string
	// IsAvailable reports whether the primitive is usable in this session.
	IsAvailable() bool
	// Encrypt returns opaque ciphertext for plaintext.
	Encrypt(plaintext string) ([]byte, error)
	// Decrypt reverses Encrypt. It fails with ErrDecryption on corrupt input
	// or input produced under another user/machine context.
	Decrypt(ciphertext []byte) (string, error)
}

var (
	// ErrUnavailable is returned when the platform primitive cannot be used.
	ErrUnavailable = errors.New("encryption unavailable")
	// ErrDecryption is returned when ciphertext cannot be opened.
	ErrDecryption = errors.New("decryption failed")
)

// Leading byte of every ciphertext, identifying the producing backend.
const (
	versionSecretbox byte = 0x01
	versionDPAPI     byte = 0x02
)

// Unavailable is a Backend that refuses every operation. It is selected when
// the configured backend cannot run on this platform.
type Unavailable struct {
	Reason string
}

// Name implements Backend.
func (u Unavailable) Name() string { return "unavailable" }

// IsAvailable implements Backend.
func (u Unavailable) IsAvailable() bool { return false }

// Encrypt implements Backend.
func (u Unavailable) Encrypt(string) ([]byte, error) {
	return nil, u.err()
}

// Decrypt implements Backend.
func (u Unavailable) Decrypt([]byte) (string, error) {
	return "", u.err()
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return errors.Join(ErrUnavailable, errors.New(u.Reason))
}
