// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package tui is the interactive terminal front-end: a login screen and a
// user management screen. Failure toasts and session-expiry navigation
// arrive from the gateway through channels and are turned into messages.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/model"
)

type viewState int

const (
	loginView viewState = iota
	usersView
)

// toastMsg carries a message delivered by the gateway's notifier.
type toastMsg struct{ text string }

// navigateMsg carries a route requested by the gateway's navigator.
type navigateMsg struct{ route string }

// loggedInMsg is sent when a login attempt finished.
type loggedInMsg struct{ err error }

// loggedOutMsg is sent after a user-initiated logout.
type loggedOutMsg struct{}

// meLoadedMsg carries the current user for the header.
type meLoadedMsg struct {
	user model.User
	err  error
}

// mainModel routes between the login and users screens.
type mainModel struct {
	ctx    context.Context
	svc    Service
	title  string
	state  viewState
	login  loginModel
	users  *usersModel
	me     *model.User
	toast  string
	toasts <-chan string
	routes <-chan string
	width  int
	height int
}

func newMainModel(ctx context.Context, svc Service, title string, toasts, routes <-chan string) mainModel {
	m := mainModel{
		ctx:    ctx,
		svc:    svc,
		title:  title,
		toasts: toasts,
		routes: routes,
	}
	if svc.IsLoggedIn() {
		m.state = usersView
		m.users = newUsersModel(ctx, svc)
	} else {
		m.state = loginView
		m.login = newLoginModel(ctx, svc)
	}
	return m
}

func (m mainModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForToast(m.toasts), waitForRoute(m.routes)}
	if m.state == usersView {
		cmds = append(cmds, loadMeCmd(m.ctx, m.svc), m.users.Init())
	} else {
		cmds = append(cmds, m.login.Init())
	}
	return tea.Batch(cmds...)
}

func waitForToast(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{text: s}
	}
}

func waitForRoute(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return navigateMsg{route: r}
	}
}

func loadMeCmd(ctx context.Context, svc Service) tea.Cmd {
	return func() tea.Msg {
		u, err := svc.Me(ctx)
		return meLoadedMsg{user: u, err: err}
	}
}

func (m mainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Any key dismisses the current toast.
		m.toast = ""
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case toastMsg:
		m.toast = msg.text
		return m, waitForToast(m.toasts)
	case navigateMsg:
		if msg.route == gateway.LoginRoute {
			m.toLogin()
			return m, tea.Batch(waitForRoute(m.routes), m.login.Init())
		}
		return m, waitForRoute(m.routes)
	case loggedInMsg:
		if msg.err == nil {
			m.state = usersView
			m.users = newUsersModel(m.ctx, m.svc)
			return m, tea.Batch(loadMeCmd(m.ctx, m.svc), m.users.Init())
		}
	case loggedOutMsg:
		m.toLogin()
		return m, m.login.Init()
	case meLoadedMsg:
		if msg.err == nil {
			u := msg.user
			m.me = &u
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case loginView:
		var lm tea.Model
		lm, cmd = m.login.Update(msg)
		m.login = lm.(loginModel)
	case usersView:
		var um tea.Model
		um, cmd = m.users.Update(msg)
		m.users = um.(*usersModel)
	}
	return m, cmd
}

func (m *mainModel) toLogin() {
	m.state = loginView
	m.me = nil
	m.users = nil
	m.login = newLoginModel(m.ctx, m.svc)
}

func (m mainModel) View() string {
	header := headerStyle.Render(m.title)
	if m.me != nil {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, "  ", helpStyle.Render(i18n.T("tui.header.user", m.me.Username)))
	}

	var body string
	switch m.state {
	case loginView:
		body = m.login.View()
	case usersView:
		body = m.users.View()
	}

	parts := []string{header, "", body}
	if m.toast != "" {
		parts = append(parts, "", toastStyle.Render(m.toast))
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// Run starts the program and blocks until the user quits. toasts and routes
// are the channels the gateway's notifier and navigator deliver to.
func Run(ctx context.Context, svc Service, title string, toasts, routes <-chan string) error {
	p := tea.NewProgram(newMainModel(ctx, svc, title, toasts, routes), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
