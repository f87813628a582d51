package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00d7ff")).MarginBottom(1)
	itemStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	itemSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#00d7ff")).Bold(true)
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af"))
	dimStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	hintStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafff")).MarginTop(1)
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	errorStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	keyStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d7af")).Bold(true)
)

// View renders the current screen
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.currentScreen {
	case ScreenAdd:
		return m.renderAddScreen()
	case ScreenConfirmDelete:
		return m.renderConfirmScreen()
	case ScreenHelp:
		return m.renderHelpScreen()
	default:
		return m.renderListScreen()
	}
}

func (m Model) renderListScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("credvault · Credentials"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("Encryption: "))
	switch {
	case !m.availabilityKnown:
		b.WriteString(dimStyle.Render("checking…"))
	case m.available:
		b.WriteString(okStyle.Render("available"))
	default:
		b.WriteString(errorStyle.Render("unavailable (storing is disabled)"))
	}
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.credentials) == 0:
		b.WriteString(dimStyle.Render("Loading…"))
		b.WriteString("\n")
	case len(m.credentials) == 0:
		b.WriteString(dimStyle.Render("No credentials stored. Press 'a' to add one."))
		b.WriteString("\n")
	default:
		for i, md := range m.credentials {
			line := fmt.Sprintf("%-24s %s", md.Provider, md.Type)
			if i == m.selection {
				b.WriteString(itemSelectedStyle.Render(line))
				if m.preview != "" {
					b.WriteString("  ")
					b.WriteString(dimStyle.Render(m.preview))
				}
			} else {
				b.WriteString(itemStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(hintStyle.Render("Navigate: ↑/↓ | Add: a | Delete: d | Peek: v | Refresh: r | Help: ? | Quit: q"))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderAddScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Add Credential"))
	b.WriteString("\n\n")

	labels := [fieldCount]string{"Provider", "Type", "Value"}
	for i := 0; i < fieldCount; i++ {
		text := m.form[i]
		if i == fieldValue {
			text = strings.Repeat("•", len([]rune(text)))
		}
		cursor := "  "
		if i == m.focus {
			cursor = "> "
			text += "_"
		}
		b.WriteString(cursor)
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", labels[i]+":")))
		b.WriteString(itemStyle.Render(text))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("Next: Tab/Enter | Save: Enter on Value | Cancel: Esc"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderConfirmScreen() string {
	var b strings.Builder

	md, _ := m.selected()
	b.WriteString(titleStyle.Render("Delete Credential"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Delete %s/%s? ", md.Provider, md.Type))
	b.WriteString(keyStyle.Render("[y/N]"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderHelpScreen() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Help"))
	b.WriteString("\n\n")

	bindings := [][2]string{
		{"↑/k ↓/j", "Move selection"},
		{"a", "Add or replace a credential"},
		{"d", "Delete selected credential"},
		{"v / Enter", "Show a masked preview of the selected value"},
		{"r", "Reload list and encryption status"},
		{"?", "Toggle this help"},
		{"q / Ctrl+C", "Quit"},
	}
	for _, kv := range bindings {
		b.WriteString(keyStyle.Render(fmt.Sprintf("%-12s", kv[0])))
		b.WriteString(itemStyle.Render(kv[1]))
		b.WriteString("\n")
	}

	b.WriteString(hintStyle.Render("Back: Esc"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	if m.statusMessage != "" {
		b.WriteString("\n")
		b.WriteString(okStyle.Render("✓ " + m.statusMessage))
		b.WriteString("\n")
	}
	if m.lastError != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("⚠ " + m.lastError))
		b.WriteString("\n")
	}
	return b.String()
}
