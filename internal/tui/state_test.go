package tui

import (
	"os"
	"path/filepath"
	"testing"

	"credvault/internal/logging"
)

func TestUIStateManager_SaveAndLoad(t *testing.T) {
	manager := NewUIStateManager(t.TempDir(), logging.NewLogger(logging.LevelError))

	state := &UIState{
		CurrentScreen: ScreenHelp,
		Selection:     2,
		LastError:     "test error",
	}
	if err := manager.Save(state); err != nil {
		t.Fatalf("Failed to save state: %v", err)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Failed to load state: %v", err)
	}

	if loaded.CurrentScreen != ScreenHelp {
		t.Errorf("Expected screen help, got %s", loaded.CurrentScreen)
	}
	if loaded.Selection != 2 {
		t.Errorf("Expected selection 2, got %d", loaded.Selection)
	}
	if loaded.LastError != "test error" {
		t.Errorf("Expected error 'test error', got %s", loaded.LastError)
	}
	if loaded.Updated.IsZero() {
		t.Error("Expected Updated to be set")
	}
}

func TestUIStateManager_InputScreensNotResumed(t *testing.T) {
	manager := NewUIStateManager(t.TempDir(), logging.NewLogger(logging.LevelError))

	for _, screen := range []Screen{ScreenAdd, ScreenConfirmDelete} {
		if err := manager.Save(&UIState{CurrentScreen: screen}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		loaded, err := manager.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.CurrentScreen != ScreenList {
			t.Errorf("resumed screen = %s, want list", loaded.CurrentScreen)
		}
	}
}

func TestUIStateManager_LoadNonExistent(t *testing.T) {
	manager := NewUIStateManager(t.TempDir(), logging.NewLogger(logging.LevelError))

	state, err := manager.Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if state.CurrentScreen != ScreenList {
		t.Errorf("Expected default screen list, got %s", state.CurrentScreen)
	}
	if state.Selection != 0 || state.LastError != "" {
		t.Errorf("unexpected default state %+v", state)
	}
}

func TestUIStateManager_SaveAndClearError(t *testing.T) {
	dir := t.TempDir()
	manager := NewUIStateManager(dir, logging.NewLogger(logging.LevelError))

	if err := manager.SaveError("connection failed"); err != nil {
		t.Fatalf("Failed to save error: %v", err)
	}
	state, _ := manager.Load()
	if state.LastError != "connection failed" {
		t.Errorf("Expected error 'connection failed', got '%s'", state.LastError)
	}

	if err := manager.ClearError(); err != nil {
		t.Fatalf("Failed to clear error: %v", err)
	}
	state, _ = manager.Load()
	if state.LastError != "" {
		t.Errorf("Expected empty error, got '%s'", state.LastError)
	}

	info, err := os.Stat(filepath.Join(dir, UIStateFileName))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestUIStateManager_LoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, UIStateFileName), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	manager := NewUIStateManager(dir, logging.NewLogger(logging.LevelError))
	if _, err := manager.Load(); err == nil {
		t.Error("Expected error for corrupted state file")
	}
}
