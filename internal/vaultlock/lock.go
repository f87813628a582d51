// Package vaultlock keeps a single serving process per vault using a lease
// file that the owner renews while it runs.
package vaultlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"credvault/internal/fsutil"
	"credvault/internal/logging"
)

const (
	// LockFileName is the name of the lease file inside the vault directory
	LockFileName = ".owner.lock"

	// DefaultLeaseTimeout is how long a lease survives without renewal
	DefaultLeaseTimeout = 2 * time.Minute
)

// ErrHeld is returned by Acquire when another live owner holds the lease.
var ErrHeld = errors.New("vault is served by another process")

// Manager manages lease acquisition, renewal and release
type Manager struct {
	dir          string
	logger       *logging.Logger
	leaseTimeout time.Duration
	now          func() time.Time
}

// NewManager creates a lease manager for the vault at dir
func NewManager(dir string, logger *logging.Logger) *Manager {
	return &Manager{
		dir:          dir,
		logger:       logger,
		leaseTimeout: DefaultLeaseTimeout,
		now:          time.Now,
	}
}

func (m *Manager) lockPath() string {
	return filepath.Join(m.dir, LockFileName)
}

// Acquire takes the lease for owner. A lease held by the same PID is reused;
// an expired lease is taken over.
func (m *Manager) Acquire(owner Owner) error {
	if owner.PID <= 0 {
		return fmt.Errorf("invalid owner pid %d", owner.PID)
	}

	existing, err := m.loadLock()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing lock: %w", err)
	}

	now := m.now().UTC()
	if existing.Held() && existing.Owner.PID != owner.PID {
		age := now.Sub(existing.RenewedTS)
		if age <= m.leaseTimeout {
			return fmt.Errorf("%w: pid %d on %s (renewed %s ago)",
				ErrHeld, existing.Owner.PID, existing.Owner.Listen, age.Round(time.Second))
		}
		m.logger.Warn("vault.lock.stale_detected", "Taking over expired vault lease", map[string]interface{}{
			"previous_pid": existing.Owner.PID,
			"age_seconds":  age.Seconds(),
		})
	}

	info := &LockInfo{Owner: owner, SinceTS: now, RenewedTS: now}
	if existing.Held() && existing.Owner.PID == owner.PID {
		info.SinceTS = existing.SinceTS
	}
	if err := m.saveLock(info); err != nil {
		return fmt.Errorf("failed to save lock: %w", err)
	}

	m.logger.Info("vault.lock.acquired", "Vault lease acquired", map[string]interface{}{
		"pid":    owner.PID,
		"listen": owner.Listen,
	})
	return nil
}

// Renew extends the lease held by owner.
func (m *Manager) Renew(owner Owner) error {
	existing, err := m.loadLock()
	if err != nil {
		return fmt.Errorf("failed to read existing lock: %w", err)
	}
	if existing.Owner.PID != owner.PID {
		return fmt.Errorf("%w: lease now held by pid %d", ErrHeld, existing.Owner.PID)
	}
	existing.RenewedTS = m.now().UTC()
	return m.saveLock(existing)
}

// Keep renews the lease until ctx is done, then releases it.
func (m *Manager) Keep(ctx context.Context, owner Owner) {
	ticker := time.NewTicker(m.leaseTimeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := m.Release(owner); err != nil {
				m.logger.Warn("vault.lock.release_failed", "Failed to release vault lease", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		case <-ticker.C:
			if err := m.Renew(owner); err != nil {
				m.logger.Error("vault.lock.renew_failed", "Failed to renew vault lease", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// Release removes the lease if owner holds it
func (m *Manager) Release(owner Owner) error {
	existing, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read existing lock: %w", err)
	}

	if existing.Owner.PID != owner.PID {
		return fmt.Errorf("cannot release lock: held by pid %d, not %d", existing.Owner.PID, owner.PID)
	}

	if _, err := fsutil.RemoveIfExists(m.lockPath()); err != nil {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	m.logger.Info("vault.lock.released", "Vault lease released", map[string]interface{}{
		"pid": owner.PID,
	})
	return nil
}

// Status returns the current live lease, or nil when none is held or the
// lease has expired.
func (m *Manager) Status() (*LockInfo, error) {
	info, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if m.now().UTC().Sub(info.RenewedTS) > m.leaseTimeout {
		return nil, nil
	}
	return info, nil
}

func (m *Manager) loadLock() (*LockInfo, error) {
	data, err := os.ReadFile(m.lockPath())
	if err != nil {
		return nil, err
	}

	var lock LockInfo
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	return &lock, nil
}

func (m *Manager) saveLock(lock *LockInfo) error {
	if err := fsutil.EnsureDirectory(m.dir, fsutil.DefaultDirPermissions); err != nil {
		return err
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	return fsutil.AtomicWriteFile(m.lockPath(), data, fsutil.DefaultFilePermissions, m.logger)
}
