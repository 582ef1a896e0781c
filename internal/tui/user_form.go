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

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldActive
	fieldSubmit
)

type userFormModel struct {
	ctx        context.Context
	svc        Service
	editing    *model.User // nil when creating
	inputs     []textinput.Model
	active     bool
	focusIndex int
	busy       bool
	err        error
}

func newUserFormModel(ctx context.Context, svc Service, editing *model.User) userFormModel {
	m := userFormModel{ctx: ctx, svc: svc, editing: editing, inputs: make([]textinput.Model, 3), active: true}
	labels := []string{i18n.T("tui.form.username"), i18n.T("tui.form.email"), i18n.T("tui.form.password")}
	if editing != nil {
		labels[fieldPassword] = i18n.T("tui.form.password_keep")
	}
	for i := range m.inputs {
		t := textinput.New()
		t.Cursor.Style = focusedStyle
		t.CharLimit = 128
		t.Width = 36
		t.Prompt = labels[i] + ": "
		if i == fieldPassword {
			t.EchoMode = textinput.EchoPassword
			t.EchoCharacter = '•'
		}
		m.inputs[i] = t
	}
	if editing != nil {
		m.inputs[fieldUsername].SetValue(editing.Username)
		m.inputs[fieldEmail].SetValue(editing.Email)
		m.active = editing.IsActive
	}
	m.inputs[fieldUsername].Focus()
	m.inputs[fieldUsername].TextStyle = focusedStyle
	return m
}

func (m userFormModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m userFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case userSavedMsg:
		m.busy = false
		var gerr *gateway.Error
		if msg.err != nil && !errors.As(msg.err, &gerr) {
			m.err = msg.err
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		s := msg.String()
		switch s {
		case "esc":
			return m, func() tea.Msg { return backToListMsg{} }
		case " ":
			if m.focusIndex == fieldActive {
				m.active = !m.active
				return m, nil
			}
		case "enter":
			if m.focusIndex == fieldSubmit {
				return m.submit()
			}
			if m.focusIndex == fieldActive {
				m.active = !m.active
				return m, nil
			}
			return m, m.focus(m.focusIndex + 1)
		case "tab", "down":
			return m, m.focus((m.focusIndex + 1) % (fieldSubmit + 1))
		case "shift+tab", "up":
			return m, m.focus((m.focusIndex + fieldSubmit) % (fieldSubmit + 1))
		}
	}

	if m.focusIndex >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

func (m *userFormModel) focus(i int) tea.Cmd {
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

func (m userFormModel) submit() (tea.Model, tea.Cmd) {
	username := strings.TrimSpace(m.inputs[fieldUsername].Value())
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	active := m.active
	ctx, svc := m.ctx, m.svc
	m.err = nil

	if m.editing == nil {
		in := model.UserCreate{Username: username, Email: email, Password: password, IsActive: &active}
		m.busy = true
		return m, func() tea.Msg {
			u, err := svc.CreateUser(ctx, in)
			return userSavedMsg{user: u, err: err}
		}
	}

	orig := *m.editing
	var in model.UserUpdate
	if username != orig.Username {
		in.Username = &username
	}
	if email != orig.Email {
		in.Email = &email
	}
	if password != "" {
		in.Password = &password
	}
	if active != orig.IsActive {
		in.IsActive = &active
	}
	if in.Empty() {
		return m, func() tea.Msg { return backToListMsg{} }
	}
	m.busy = true
	return m, func() tea.Msg {
		u, err := svc.UpdateUser(ctx, orig.ID, in)
		return userSavedMsg{user: u, err: err}
	}
}

func (m userFormModel) View() string {
	title := i18n.T("tui.form.new_title")
	if m.editing != nil {
		title = i18n.T("tui.form.edit_title", m.editing.Username)
	}
	items := []string{titleStyle.Render(title), ""}
	for i := range m.inputs {
		items = append(items, m.inputs[i].View())
	}

	box := "[ ]"
	if m.active {
		box = "[x]"
	}
	activeLine := fmt.Sprintf("%s %s", box, i18n.T("tui.form.active"))
	if m.focusIndex == fieldActive {
		activeLine = formSelectedItemStyle.Render(activeLine)
	} else {
		activeLine = formItemStyle.Render(activeLine)
	}
	items = append(items, activeLine)

	button := formItemStyle.Render("[ OK ]")
	if m.focusIndex == fieldSubmit {
		button = formSelectedItemStyle.Render("[ OK ]")
	}
	items = append(items, "", button)

	if m.err != nil {
		items = append(items, "", errorStyle.Render(m.err.Error()))
	}
	items = append(items, "", helpStyle.Render(i18n.T("tui.form.help")))
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}
