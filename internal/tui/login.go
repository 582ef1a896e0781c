// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/model"
)

type loginModel struct {
	ctx        context.Context
	svc        Service
	focusIndex int
	inputs     []textinput.Model // 0: username, 1: password
	busy       bool
	err        error
}

func newLoginModel(ctx context.Context, svc Service) loginModel {
	m := loginModel{ctx: ctx, svc: svc, inputs: make([]textinput.Model, 2)}
	for i := range m.inputs {
		t := textinput.New()
		t.Cursor.Style = focusedStyle
		t.CharLimit = 128
		t.Width = 32
		switch i {
		case 0:
			t.Prompt = fmt.Sprintf("%-10s ", i18n.T("tui.login.username")+":")
		case 1:
			t.Prompt = fmt.Sprintf("%-10s ", i18n.T("tui.login.password")+":")
			t.EchoMode = textinput.EchoPassword
			t.EchoCharacter = '•'
		}
		m.inputs[i] = t
	}
	m.inputs[0].Focus()
	m.inputs[0].TextStyle = focusedStyle
	return m
}

func (m loginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loggedInMsg:
		m.busy = false
		m.inputs[1].SetValue("")
		// Gateway failures already reached the user as a toast.
		var gerr *gateway.Error
		if msg.err != nil && !errors.As(msg.err, &gerr) {
			m.err = msg.err
		}
		return m, m.focus(1)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			return m, tea.Quit
		case "tab", "shift+tab", "up", "down":
			return m, m.focus(1 - m.focusIndex)
		case "enter":
			if m.focusIndex == 0 {
				return m, m.focus(1)
			}
			return m.submit()
		}
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m *loginModel) focus(i int) tea.Cmd {
	m.focusIndex = i
	var cmd tea.Cmd
	for j := range m.inputs {
		if j == i {
			cmd = m.inputs[j].Focus()
			m.inputs[j].TextStyle = focusedStyle
			continue
		}
		m.inputs[j].Blur()
		m.inputs[j].TextStyle = lipgloss.NewStyle()
	}
	return cmd
}

func (m loginModel) submit() (tea.Model, tea.Cmd) {
	creds := model.Credentials{
		Username: strings.TrimSpace(m.inputs[0].Value()),
		Password: m.inputs[1].Value(),
	}
	m.busy = true
	m.err = nil
	ctx, svc := m.ctx, m.svc
	return m, func() tea.Msg {
		return loggedInMsg{err: svc.Login(ctx, creds)}
	}
}

func (m loginModel) View() string {
	items := []string{titleStyle.Render(i18n.T("tui.login.title")), ""}
	for i := range m.inputs {
		items = append(items, m.inputs[i].View())
	}
	if m.busy {
		items = append(items, "", specialStyle.Render(i18n.T("tui.login.in_progress")))
	}
	if m.err != nil {
		items = append(items, "", errorStyle.Render(m.err.Error()))
	}
	items = append(items, "", helpStyle.Render(i18n.T("tui.login.help")))
	return dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}
