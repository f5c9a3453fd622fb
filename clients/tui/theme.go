// Package tui provides a terminal user interface for the FakeGPT chat.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/fakegpt/clients/tui/components"
)

var (
	PromptStyle = lipgloss.NewStyle().
			Foreground(components.Primary).
			Bold(true)

	InputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false).
				BorderForeground(components.Border)

	DisabledStyle = lipgloss.NewStyle().
			Foreground(components.Muted)
)
