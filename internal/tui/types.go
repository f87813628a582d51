package tui

import (
	"time"

	"credvault/internal/credentials"
	"credvault/internal/mediator"
)

// Screen represents different TUI screens
type Screen string

const (
	// ScreenList shows stored credentials
	ScreenList Screen = "list"
	// ScreenAdd collects a new credential
	ScreenAdd Screen = "add"
	// ScreenConfirmDelete asks before deleting the selected credential
	ScreenConfirmDelete Screen = "confirm_delete"
	// ScreenHelp shows key bindings
	ScreenHelp Screen = "help"
)

// UIState represents the persisted UI state
type UIState struct {
	CurrentScreen Screen    `json:"screen"`
	Selection     int       `json:"selection"`
	LastError     string    `json:"last_error"`
	Updated       time.Time `json:"updated"`
}

// Field indexes of the add form.
const (
	fieldProvider = iota
	fieldType
	fieldValue
	fieldCount
)

// Messages produced by mediator calls.

type listLoadedMsg struct {
	result mediator.ListResult
	err    error
}

type availabilityMsg struct {
	result mediator.Availability
	err    error
}

type opDoneMsg struct {
	op     string
	md     credentials.Metadata
	result mediator.Result
	err    error
}

type previewMsg struct {
	md     credentials.Metadata
	result mediator.GetResult
	err    error
}
