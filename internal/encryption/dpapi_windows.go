//go:build windows

package encryption

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"credvault/internal/logging"
)

// DPAPIBackend protects values with the Windows Data Protection API under
// the current user's credentials.
type DPAPIBackend struct {
	entropy []byte
	logger  *logging.Logger
}

func newDPAPI(service string, logger *logging.Logger) Backend {
	return &DPAPIBackend{entropy: []byte(service), logger: logger}
}

// Name implements Backend.
func (d *DPAPIBackend) Name() string { return "dpapi" }

// IsAvailable round-trips a probe value through DPAPI.
func (d *DPAPIBackend) IsAvailable() bool {
	out, err := d.protect([]byte("probe"))
	if err != nil {
		d.logger.Warn("encryption.dpapi.unavailable", "DPAPI probe failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	_, err = d.unprotect(out)
	return err == nil
}

// Encrypt implements Backend.
func (d *DPAPIBackend) Encrypt(plaintext string) ([]byte, error) {
	out, err := d.protect([]byte(plaintext))
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return append([]byte{versionDPAPI}, out...), nil
}

// Decrypt implements Backend.
func (d *DPAPIBackend) Decrypt(ciphertext []byte) (string, error) {
	if len(ciphertext) < 2 || ciphertext[0] != versionDPAPI {
		return "", fmt.Errorf("%w: unrecognized ciphertext format", ErrDecryption)
	}
	out, err := d.unprotect(ciphertext[1:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(out), nil
}

func (d *DPAPIBackend) protect(data []byte) ([]byte, error) {
	in := blob(data)
	entropy := blob(d.entropy)
	var out windows.DataBlob
	if err := windows.CryptProtectData(&in, nil, &entropy, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out); err != nil {
		return nil, err
	}
	return takeBlob(&out), nil
}

func (d *DPAPIBackend) unprotect(data []byte) ([]byte, error) {
	in := blob(data)
	entropy := blob(d.entropy)
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(&in, nil, &entropy, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out); err != nil {
		return nil, err
	}
	return takeBlob(&out), nil
}

func blob(b []byte) windows.DataBlob {
	if len(b) == 0 {
		return windows.DataBlob{}
	}
	return windows.DataBlob{Size: uint32(len(b)), Data: &b[0]}
}

// takeBlob copies a DPAPI-allocated buffer into Go memory and frees it.
func takeBlob(b *windows.DataBlob) []byte {
	if b.Data == nil {
		return nil
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(b.Data))) //nolint:errcheck
	out := make([]byte, b.Size)
	copy(out, unsafe.Slice(b.Data, b.Size))
	return out
}
