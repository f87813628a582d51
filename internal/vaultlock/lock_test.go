package vaultlock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"credvault/internal/logging"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), logging.NewLogger(logging.LevelError))
}

func TestAcquire_Success(t *testing.T) {
	m := newTestManager(t)
	owner := Owner{PID: 100, Listen: "127.0.0.1:47821"}

	if err := m.Acquire(owner); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(m.dir, LockFileName)); err != nil {
		t.Errorf("lock file not created: %v", err)
	}

	status, err := m.Status()
	if err != nil || status == nil {
		t.Fatalf("Status() = %v, %v", status, err)
	}
	if status.Owner != owner {
		t.Errorf("Owner = %+v, want %+v", status.Owner, owner)
	}
}

func TestAcquire_SameOwnerReentrant(t *testing.T) {
	m := newTestManager(t)
	owner := Owner{PID: 100}

	if err := m.Acquire(owner); err != nil {
		t.Fatal(err)
	}
	if err := m.Acquire(owner); err != nil {
		t.Errorf("second Acquire() by same owner error = %v", err)
	}
}

func TestAcquire_HeldByOther(t *testing.T) {
	m := newTestManager(t)

	if err := m.Acquire(Owner{PID: 100}); err != nil {
		t.Fatal(err)
	}
	err := m.Acquire(Owner{PID: 200})
	if !errors.Is(err, ErrHeld) {
		t.Errorf("Acquire() error = %v, want ErrHeld", err)
	}
}

func TestAcquire_TakesOverStaleLease(t *testing.T) {
	m := newTestManager(t)
	base := time.Now()
	m.now = func() time.Time { return base }

	if err := m.Acquire(Owner{PID: 100}); err != nil {
		t.Fatal(err)
	}

	m.now = func() time.Time { return base.Add(DefaultLeaseTimeout + time.Second) }
	if status, _ := m.Status(); status != nil {
		t.Error("Status() should report no owner for an expired lease")
	}
	if err := m.Acquire(Owner{PID: 200}); err != nil {
		t.Fatalf("Acquire() over stale lease error = %v", err)
	}
	status, _ := m.Status()
	if status == nil || status.Owner.PID != 200 {
		t.Errorf("Status() = %+v, want pid 200", status)
	}
}

func TestRenewAndRelease(t *testing.T) {
	m := newTestManager(t)
	owner := Owner{PID: 100}

	if err := m.Acquire(owner); err != nil {
		t.Fatal(err)
	}
	if err := m.Renew(owner); err != nil {
		t.Errorf("Renew() error = %v", err)
	}
	if err := m.Renew(Owner{PID: 200}); !errors.Is(err, ErrHeld) {
		t.Errorf("Renew() by non-owner error = %v, want ErrHeld", err)
	}
	if err := m.Release(Owner{PID: 200}); err == nil {
		t.Error("Release() by non-owner should fail")
	}
	if err := m.Release(owner); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := m.Release(owner); err != nil {
		t.Errorf("Release() with no lock error = %v", err)
	}
}

func TestKeep_ReleasesOnCancel(t *testing.T) {
	m := newTestManager(t)
	m.leaseTimeout = 30 * time.Millisecond
	owner := Owner{PID: 100}

	if err := m.Acquire(owner); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Keep(ctx, owner)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if status, _ := m.Status(); status == nil {
		t.Error("lease expired while being kept")
	}

	cancel()
	<-done
	if _, err := os.Stat(filepath.Join(m.dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after Keep returns")
	}
}

func TestAcquire_InvalidOwner(t *testing.T) {
	m := newTestManager(t)
	if err := m.Acquire(Owner{}); err == nil {
		t.Error("Acquire() with zero pid should fail")
	}
}
