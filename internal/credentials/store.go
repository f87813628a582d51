// Package credentials persists provider credentials as one encrypted file
// per (provider, type) pair inside a single vault directory.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"credvault/internal/encryption"
	"credvault/internal/fsutil"
	"credvault/internal/logging"
)

// Store is the file-backed credential store. Only ciphertext produced by the
// encryption backend is ever written to disk.
type Store struct {
	dir     string
	backend encryption.Backend
	logger  *logging.Logger

	// per storage key; each call reads or writes one file end-to-end
	locks sync.Map
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// the first write and re-created on later writes if it disappears.
func NewStore(dir string, backend encryption.Backend, logger *logging.Logger) *Store {
	return &Store{
		dir:     dir,
		backend: backend,
		logger:  logger,
	}
}

// Dir returns the vault root.
func (s *Store) Dir() string {
	return s.dir
}

// IsAvailable reports whether the encryption backend can be used.
func (s *Store) IsAvailable() bool {
	return s.backend.IsAvailable()
}

// Store encrypts value and writes it under (provider, credType), replacing any
// previous value. It refuses to write when encryption is unavailable.
func (s *Store) Store(ctx context.Context, provider, credType, value string) error {
	if err := RequireFields(provider, credType); err != nil {
		return err
	}
	if IsBlank(value) {
		return &ValidationError{Field: "value"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.backend.IsAvailable() {
		s.logger.Warn("vault.store.refused", "Encryption unavailable, refusing to store credential", map[string]interface{}{
			"provider": provider,
			"type":     credType,
			"backend":  s.backend.Name(),
		})
		return ErrEncryptionUnavailable
	}

	key := StorageKey(provider, credType)
	unlock := s.lock(key)
	defer unlock()

	ciphertext, err := s.backend.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt credential: %w", err)
	}

	if err := fsutil.EnsureDirectory(s.dir, fsutil.DefaultDirPermissions); err != nil {
		return &IOError{Op: "mkdir", Err: err}
	}

	if err := fsutil.AtomicWriteFile(s.path(key), ciphertext, fsutil.DefaultFilePermissions, s.logger); err != nil {
		return &IOError{Op: "write", Err: err}
	}

	s.logger.Info("vault.stored", "Credential stored", map[string]interface{}{
		"provider": provider,
		"type":     credType,
		"key":      key,
	})
	return nil
}

// Get decrypts the credential for (provider, credType). found is false, with
// a nil error, when nothing is stored under that key.
func (s *Store) Get(ctx context.Context, provider, credType string) (value string, found bool, err error) {
	if err := RequireFields(provider, credType); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	key := StorageKey(provider, credType)
	unlock := s.lock(key)
	defer unlock()

	data, err := os.ReadFile(s.path(key)) // #nosec G304 -- filename is a sanitized storage key
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, &IOError{Op: "read", Err: err}
	}

	plaintext, err := s.backend.Decrypt(data)
	if err != nil {
		s.logger.Warn("vault.decrypt_failed", "Stored credential could not be decrypted", map[string]interface{}{
			"provider": provider,
			"type":     credType,
			"error":    err.Error(),
		})
		return "", false, fmt.Errorf("decrypt credential: %w", err)
	}

	s.logger.Debug("vault.retrieved", "Credential retrieved", map[string]interface{}{
		"provider": provider,
		"type":     credType,
	})
	return plaintext, true, nil
}

// Delete removes the credential. Deleting an absent credential succeeds.
func (s *Store) Delete(ctx context.Context, provider, credType string) error {
	if err := RequireFields(provider, credType); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := StorageKey(provider, credType)
	unlock := s.lock(key)
	defer unlock()

	removed, err := fsutil.RemoveIfExists(s.path(key))
	if err != nil {
		return &IOError{Op: "delete", Err: err}
	}

	s.logger.Info("vault.deleted", "Credential deleted", map[string]interface{}{
		"provider": provider,
		"type":     credType,
		"existed":  removed,
	})
	return nil
}

// List enumerates stored credentials by filename only. File contents are
// never read. A missing vault directory yields an empty list.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Metadata{}, nil
		}
		return nil, &IOError{Op: "list", Err: err}
	}

	out := make([]Metadata, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if md, ok := ParseStorageKey(e.Name()); ok {
			out = append(out, md)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// DeleteAll removes every listed credential and returns how many deletions
// succeeded. Individual failures are joined into the returned error.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	items, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var errs []error
	deleted := 0
	for _, md := range items {
		if err := s.Delete(ctx, md.Provider, md.Type); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", md.Provider, md.Type, err))
			continue
		}
		deleted++
	}

	s.logger.Info("vault.reset", "Vault reset", map[string]interface{}{
		"deleted": deleted,
		"failed":  len(errs),
	})
	return deleted, errors.Join(errs...)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

func (s *Store) lock(key string) func() {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RequireFields rejects a provider or type that is empty after trimming
// whitespace.
func RequireFields(provider, credType string) error {
	if IsBlank(provider) {
		return &ValidationError{Field: "provider"}
	}
	if IsBlank(credType) {
		return &ValidationError{Field: "type"}
	}
	return nil
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
