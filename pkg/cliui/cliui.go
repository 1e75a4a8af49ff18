// Package cliui holds the terminal output shared by ragchat commands: styles,
// progress steps and the rendering of retrieved chunks.
package cliui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// NotSet is shown in place of an empty config value.
const NotSet = "<not set>"

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// Setting renders one config key and its value on a single line.
func Setting(key, value string) string {
	if value == "" {
		return KeyStyle.Render(key) + "  " + DimStyle.Render(NotSet)
	}
	return KeyStyle.Render(key) + "  " + ValueStyle.Render(value)
}
