// Package tui is a terminal credential manager. It is a less-trusted caller:
// every action goes through a mediator.Caller, never to the vault directly.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"credvault/internal/credentials"
	"credvault/internal/logging"
	"credvault/internal/mediator"
)

const callTimeout = 5 * time.Second

// Model represents the TUI application state
type Model struct {
	caller       mediator.Caller
	logger       *logging.Logger
	stateManager *UIStateManager
	quitting     bool

	// UI State
	currentScreen Screen
	selection     int
	lastError     string
	statusMessage string
	loading       bool

	// Vault State
	credentials       []credentials.Metadata
	available         bool
	availabilityKnown bool
	preview           string // masked value of the selected credential

	// Add Screen State
	form  [fieldCount]string
	focus int
}

// NewModel creates a model that talks to caller and persists UI state in stateDir.
func NewModel(caller mediator.Caller, logger *logging.Logger, stateDir string) Model {
	m := Model{
		caller:        caller,
		logger:        logger,
		stateManager:  NewUIStateManager(stateDir, logger),
		currentScreen: ScreenList,
		loading:       true,
	}

	if state, err := m.stateManager.Load(); err == nil {
		m.currentScreen = state.CurrentScreen
		m.selection = state.Selection
		m.lastError = state.LastError
	}

	return m
}

// Init loads the credential list and encryption availability.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadList(), m.checkAvailability())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		return m.applyList(msg), nil
	case availabilityMsg:
		return m.applyAvailability(msg), nil
	case opDoneMsg:
		return m.applyOp(msg)
	case previewMsg:
		return m.applyPreview(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m.quit()
	}

	switch m.currentScreen {
	case ScreenAdd:
		return m.handleAddKeys(msg)
	case ScreenConfirmDelete:
		return m.handleConfirmKeys(key)
	case ScreenHelp:
		switch key {
		case "q":
			return m.quit()
		case "esc", "?":
			m.currentScreen = ScreenList
			m.saveState()
		}
		return m, nil
	default:
		return m.handleListKeys(key)
	}
}

func (m Model) handleListKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m.quit()
	case "up", "k":
		if m.selection > 0 {
			m.selection--
			m.preview = ""
		}
	case "down", "j":
		if m.selection < len(m.credentials)-1 {
			m.selection++
			m.preview = ""
		}
	case "r":
		m.loading = true
		m.statusMessage = ""
		return m, tea.Batch(m.loadList(), m.checkAvailability())
	case "a":
		m.currentScreen = ScreenAdd
		m.form = [fieldCount]string{}
		m.focus = fieldProvider
		m.lastError = ""
	case "d", "delete":
		if _, ok := m.selected(); ok {
			m.currentScreen = ScreenConfirmDelete
		}
	case "v", "enter":
		if md, ok := m.selected(); ok {
			return m, m.fetchPreview(md)
		}
	case "?":
		m.currentScreen = ScreenHelp
	}
	return m, nil
}

func (m Model) handleConfirmKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y", "Y":
		md, ok := m.selected()
		m.currentScreen = ScreenList
		if !ok {
			return m, nil
		}
		return m, m.deleteCredential(md)
	case "n", "N", "esc":
		m.currentScreen = ScreenList
	}
	return m, nil
}

func (m Model) handleAddKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.currentScreen = ScreenList
		m.form = [fieldCount]string{}
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.focus = (m.focus + 1) % fieldCount
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = (m.focus + fieldCount - 1) % fieldCount
	case tea.KeyEnter:
		if m.focus < fieldValue {
			m.focus++
			return m, nil
		}
		return m.submitAdd()
	case tea.KeyBackspace:
		field := []rune(m.form[m.focus])
		if len(field) > 0 {
			m.form[m.focus] = string(field[:len(field)-1])
		}
	case tea.KeySpace:
		m.form[m.focus] += " "
	case tea.KeyRunes:
		m.form[m.focus] += string(msg.Runes)
	}
	return m, nil
}

func (m Model) submitAdd() (tea.Model, tea.Cmd) {
	provider := strings.TrimSpace(m.form[fieldProvider])
	credType := strings.TrimSpace(m.form[fieldType])
	value := m.form[fieldValue]

	m.form = [fieldCount]string{}
	m.focus = fieldProvider
	m.currentScreen = ScreenList
	return m, m.storeCredential(provider, credType, value)
}

func (m Model) applyList(msg listLoadedMsg) Model {
	m.loading = false
	switch {
	case msg.err != nil:
		m.lastError = msg.err.Error()
		return m
	case !msg.result.Success:
		m.lastError = msg.result.Error
		return m
	}

	m.credentials = msg.result.Credentials
	if m.selection >= len(m.credentials) {
		m.selection = len(m.credentials) - 1
	}
	if m.selection < 0 {
		m.selection = 0
	}
	return m
}

func (m Model) applyAvailability(msg availabilityMsg) Model {
	if msg.err != nil {
		m.lastError = msg.err.Error()
		return m
	}
	m.available = msg.result.Available
	m.availabilityKnown = true
	return m
}

func (m Model) applyOp(msg opDoneMsg) (tea.Model, tea.Cmd) {
	label := msg.md.Provider + "/" + msg.md.Type
	switch {
	case msg.err != nil:
		m.lastError = msg.err.Error()
	case !msg.result.Success:
		m.lastError = msg.result.Error
	default:
		m.lastError = ""
		m.preview = ""
		if msg.op == mediator.OpStore {
			m.statusMessage = "Stored " + label
		} else {
			m.statusMessage = "Deleted " + label
		}
	}
	m.saveState()
	m.loading = true
	return m, m.loadList()
}

func (m Model) applyPreview(msg previewMsg) Model {
	switch {
	case msg.err != nil:
		m.lastError = msg.err.Error()
	case !msg.result.Success:
		m.lastError = msg.result.Error
	case msg.result.Value == nil:
		m.preview = "(not stored)"
	default:
		m.preview = Mask(*msg.result.Value)
	}
	return m
}

func (m Model) selected() (credentials.Metadata, bool) {
	if m.selection < 0 || m.selection >= len(m.credentials) {
		return credentials.Metadata{}, false
	}
	return m.credentials[m.selection], true
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.saveState()
	return m, tea.Quit
}

func (m Model) saveState() {
	state := &UIState{
		CurrentScreen: m.currentScreen,
		Selection:     m.selection,
		LastError:     m.lastError,
	}
	if err := m.stateManager.Save(state); err != nil {
		m.logger.Warn("tui.state.save_failed", "Failed to persist UI state", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (m Model) loadList() tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := caller.List(ctx)
		return listLoadedMsg{result: res, err: err}
	}
}

func (m Model) checkAvailability() tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := caller.IsAvailable(ctx)
		return availabilityMsg{result: res, err: err}
	}
}

func (m Model) storeCredential(provider, credType, value string) tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := caller.Store(ctx, provider, credType, value)
		return opDoneMsg{op: mediator.OpStore, md: credentials.Metadata{Provider: provider, Type: credType}, result: res, err: err}
	}
}

func (m Model) deleteCredential(md credentials.Metadata) tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := caller.Delete(ctx, md.Provider, md.Type)
		return opDoneMsg{op: mediator.OpDelete, md: md, result: res, err: err}
	}
}

func (m Model) fetchPreview(md credentials.Metadata) tea.Cmd {
	caller := m.caller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := caller.Get(ctx, md.Provider, md.Type)
		return previewMsg{md: md, result: res, err: err}
	}
}

// Mask hides all but the edges of a credential value.
func Mask(value string) string {
	r := []rune(value)
	if len(r) <= 8 {
		return strings.Repeat("•", len(r))
	}
	return string(r[:4]) + strings.Repeat("•", 8) + string(r[len(r)-4:])
}
