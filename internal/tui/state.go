package tui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"credvault/internal/fsutil"
	"credvault/internal/logging"
)

const (
	// UIStateFileName is the name of the UI state file
	UIStateFileName = "ui_state.json"
)

// UIStateManager persists screen, selection and last error between runs.
// It never stores credential values.
type UIStateManager struct {
	stateDir string
	logger   *logging.Logger
}

// NewUIStateManager creates a new UI state manager
func NewUIStateManager(stateDir string, logger *logging.Logger) *UIStateManager {
	return &UIStateManager{
		stateDir: stateDir,
		logger:   logger,
	}
}

func (m *UIStateManager) statePath() string {
	return filepath.Join(m.stateDir, UIStateFileName)
}

// Load loads the UI state from disk
func (m *UIStateManager) Load() (*UIState, error) {
	data, err := os.ReadFile(m.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &UIState{
				CurrentScreen: ScreenList,
				Updated:       time.Now().UTC(),
			}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state UIState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	// Input screens are never resumed; they may have held a half-typed value
	if state.CurrentScreen != ScreenHelp {
		state.CurrentScreen = ScreenList
	}

	return &state, nil
}

// Save saves the UI state to disk
func (m *UIStateManager) Save(state *UIState) error {
	if err := fsutil.EnsureDirectory(m.stateDir, fsutil.DefaultDirPermissions); err != nil {
		return err
	}

	state.Updated = time.Now().UTC()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := fsutil.AtomicWriteFile(m.statePath(), data, fsutil.DefaultFilePermissions, m.logger); err != nil {
		return err
	}

	m.logger.Debug("tui.state.saved", "UI state saved", map[string]interface{}{
		"screen":    state.CurrentScreen,
		"selection": state.Selection,
	})

	return nil
}

// SaveError saves an error message to the state
func (m *UIStateManager) SaveError(errorMsg string) error {
	state, err := m.Load()
	if err != nil {
		state = &UIState{CurrentScreen: ScreenList}
	}
	state.LastError = errorMsg
	return m.Save(state)
}

// ClearError clears the last error from the state
func (m *UIStateManager) ClearError() error {
	state, err := m.Load()
	if err != nil {
		return err
	}

	state.LastError = ""
	return m.Save(state)
}
