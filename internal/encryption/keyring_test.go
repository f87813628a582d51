package encryption

import (
	"bytes"
	"errors"
	"testing"

	"github.com/zalando/go-keyring"

	"credvault/internal/logging"
)

func newTestKeyring(t *testing.T, service string) *KeyringBackend {
	t.Helper()
	keyring.MockInit()
	return NewKeyring(service, logging.NewLogger(logging.LevelError))
}

func TestKeyringBackend_RoundTrip(t *testing.T) {
	b := newTestKeyring(t, "credvault-test")

	tests := []struct {
		name      string
		plaintext string
	}{
		{"api key", "sk-test-123"},
		{"unicode", "Hello 世界 🌍"},
		{"special chars", "!@#$%^&*()_+-={}[]|\\:\";<>?,./"},
		{"long value", string(bytes.Repeat([]byte("x"), 64*1024))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := b.Encrypt(tt.plaintext)
			if err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}

			if bytes.Contains(ciphertext, []byte(tt.plaintext)) {
				t.Error("ciphertext contains the plaintext")
			}
			if ciphertext[0] != versionSecretbox {
				t.Errorf("version byte = %#x, want %#x", ciphertext[0], versionSecretbox)
			}

			got, err := b.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if got != tt.plaintext {
				t.Errorf("Decrypt() = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestKeyringBackend_RandomNonce(t *testing.T) {
	b := newTestKeyring(t, "credvault-test")

	c1, err := b.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	c2, err := b.Encrypt("same value")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	if bytes.Equal(c1, c2) {
		t.Error("same plaintext encrypted twice should produce different ciphertext")
	}
}

func TestKeyringBackend_KeyPersistsAcrossInstances(t *testing.T) {
	b1 := newTestKeyring(t, "credvault-test")
	ciphertext, err := b1.Encrypt("persisted")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Same mock keyring, fresh instance without a cached key
	b2 := NewKeyring("credvault-test", logging.NewLogger(logging.LevelError))
	got, err := b2.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != "persisted" {
		t.Errorf("Decrypt() = %q, want persisted", got)
	}
}

func TestKeyringBackend_WrongContext(t *testing.T) {
	b1 := newTestKeyring(t, "service-a")
	ciphertext, err := b1.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// Another service has no master key yet
	b2 := NewKeyring("service-b", logging.NewLogger(logging.LevelError))
	if _, err := b2.Decrypt(ciphertext); !errors.Is(err, ErrDecryption) {
		t.Errorf("Decrypt() without key error = %v, want ErrDecryption", err)
	}

	// And once it has its own key, it still cannot open service-a data
	if _, err := b2.Encrypt("other"); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := b2.Decrypt(ciphertext); !errors.Is(err, ErrDecryption) {
		t.Errorf("Decrypt() with wrong key error = %v, want ErrDecryption", err)
	}
}

func TestKeyringBackend_CorruptedData(t *testing.T) {
	b := newTestKeyring(t, "credvault-test")
	ciphertext, err := b.Encrypt("test data")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown version", append([]byte{0x7f}, ciphertext[1:]...)},
		{"too short", []byte{versionSecretbox, 1, 2, 3}},
		{"flipped bit", func() []byte {
			c := append([]byte(nil), ciphertext...)
			c[len(c)-1] ^= 0xFF
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.Decrypt(tt.data); !errors.Is(err, ErrDecryption) {
				t.Errorf("Decrypt() error = %v, want ErrDecryption", err)
			}
		})
	}
}

func TestKeyringBackend_Unavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("secret service not running"))
	b := NewKeyring("credvault-test", logging.NewLogger(logging.LevelError))

	if b.IsAvailable() {
		t.Error("IsAvailable() = true, want false when keyring errors")
	}
	if _, err := b.Encrypt("value"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Encrypt() error = %v, want ErrUnavailable", err)
	}
}

func TestKeyringBackend_IsAvailableDoesNotCreateKey(t *testing.T) {
	b := newTestKeyring(t, "credvault-probe")

	if !b.IsAvailable() {
		t.Fatal("IsAvailable() = false with mock keyring")
	}
	if _, err := keyring.Get("credvault-probe", masterKeyAccount); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("IsAvailable() should not create a master key, Get() err = %v", err)
	}
}

func TestKeyringBackend_MalformedStoredKey(t *testing.T) {
	b := newTestKeyring(t, "credvault-bad")
	if err := keyring.Set("credvault-bad", masterKeyAccount, "not-base64!"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := b.Encrypt("x"); !errors.Is(err, ErrDecryption) {
		t.Errorf("Encrypt() with malformed key error = %v, want ErrDecryption", err)
	}
}
