// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui // import "github.com/toeirei/usermgr/internal/tui"

import "github.com/charmbracelet/lipgloss"

const (
	colorSubtle    = lipgloss.Color("240")
	colorHighlight = lipgloss.Color("81")
	colorSpecial   = lipgloss.Color("208")
	colorError     = lipgloss.Color("196")
	colorSuccess   = lipgloss.Color("40")
	colorWhite     = lipgloss.Color("231")
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	helpStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	inactiveItemStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	specialStyle = lipgloss.NewStyle().Foreground(colorSpecial)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(colorHighlight).
			Bold(true).
			Padding(0, 1)

	columnHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSubtle)

	itemStyle         = lipgloss.NewStyle()
	selectedItemStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	formItemStyle         = lipgloss.NewStyle()
	formSelectedItemStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	dialogBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(colorHighlight).
			Padding(0, 2)

	toastStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorWhite).
			Background(colorError)
)
