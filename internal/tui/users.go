// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/usermgr/internal/i18n"
	"github.com/toeirei/usermgr/internal/model"
)

const defaultPageSize = 20

type usersLoadedMsg struct {
	list model.UserList
	err  error
}

type userSavedMsg struct {
	user model.User
	err  error
}

type userDeletedMsg struct {
	user model.User
	err  error
}

// backToListMsg closes the form.
type backToListMsg struct{}

type usersViewState int

const (
	usersListView usersViewState = iota
	usersFormView
	usersSearchView
)

type usersModel struct {
	ctx     context.Context
	svc     Service
	state   usersViewState
	form    userFormModel
	users   []model.User
	total   int
	page    int
	limit   int
	search  string
	cursor  int
	loading bool
	status  string
	// delete confirmation
	isConfirmingDelete bool
	userToDelete       model.User
	searchInput        textinput.Model
}

func newUsersModel(ctx context.Context, svc Service) *usersModel {
	si := textinput.New()
	si.Prompt = i18n.T("tui.users.search") + ": "
	si.CharLimit = 64
	si.Width = 32
	return &usersModel{ctx: ctx, svc: svc, page: 1, limit: defaultPageSize, searchInput: si}
}

func (m *usersModel) Init() tea.Cmd {
	return m.load()
}

func (m *usersModel) load() tea.Cmd {
	m.loading = true
	ctx, svc := m.ctx, m.svc
	params := model.UserListParams{Page: m.page, Limit: m.limit, Search: m.search}
	return func() tea.Msg {
		l, err := svc.ListUsers(ctx, params)
		return usersLoadedMsg{list: l, err: err}
	}
}

func (m *usersModel) selected() (model.User, bool) {
	if m.cursor < 0 || m.cursor >= len(m.users) {
		return model.User{}, false
	}
	return m.users[m.cursor], true
}

func (m *usersModel) hasNextPage() bool {
	return m.page*m.limit < m.total || len(m.users) == m.limit
}

func (m *usersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case usersLoadedMsg:
		m.loading = false
		if msg.err == nil {
			m.users = msg.list.Data
			m.total = msg.list.Total
			if m.cursor >= len(m.users) {
				m.cursor = len(m.users) - 1
			}
			if m.cursor < 0 {
				m.cursor = 0
			}
		}
		return m, nil

	case userSavedMsg:
		if msg.err != nil {
			fm, cmd := m.form.Update(msg)
			m.form = fm.(userFormModel)
			return m, cmd
		}
		m.state = usersListView
		m.status = i18n.T("tui.users.saved", msg.user.Username)
		return m, m.load()

	case userDeletedMsg:
		if msg.err == nil {
			m.status = i18n.T("tui.users.deleted", msg.user.Username)
		}
		return m, m.load()

	case backToListMsg:
		m.state = usersListView
		return m, nil
	}

	switch m.state {
	case usersFormView:
		fm, cmd := m.form.Update(msg)
		m.form = fm.(userFormModel)
		return m, cmd
	case usersSearchView:
		return m.updateSearch(msg)
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.isConfirmingDelete {
		switch key.String() {
		case "y", "Y":
			m.isConfirmingDelete = false
			u := m.userToDelete
			ctx, svc := m.ctx, m.svc
			return m, func() tea.Msg {
				deleted, err := svc.DeleteUser(ctx, u.ID)
				if err == nil && deleted.Username == "" {
					deleted = u
				}
				return userDeletedMsg{user: deleted, err: err}
			}
		case "n", "N", "esc":
			m.isConfirmingDelete = false
		}
		return m, nil
	}

	m.status = ""
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.users)-1 {
			m.cursor++
		}
	case "n":
		if m.hasNextPage() {
			m.page++
			m.cursor = 0
			return m, m.load()
		}
	case "p":
		if m.page > 1 {
			m.page--
			m.cursor = 0
			return m, m.load()
		}
	case "r":
		return m, m.load()
	case "/":
		m.state = usersSearchView
		m.searchInput.SetValue(m.search)
		return m, m.searchInput.Focus()
	case "a":
		m.form = newUserFormModel(m.ctx, m.svc, nil)
		m.state = usersFormView
		return m, m.form.Init()
	case "e":
		if u, ok := m.selected(); ok {
			m.form = newUserFormModel(m.ctx, m.svc, &u)
			m.state = usersFormView
			return m, m.form.Init()
		}
	case "d":
		if u, ok := m.selected(); ok {
			m.isConfirmingDelete = true
			m.userToDelete = u
		}
	case "l":
		ctx, svc := m.ctx, m.svc
		return m, func() tea.Msg {
			_ = svc.Logout(ctx)
			return loggedOutMsg{}
		}
	}
	return m, nil
}

func (m *usersModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.search = strings.TrimSpace(m.searchInput.Value())
			m.searchInput.Blur()
			m.state = usersListView
			m.page = 1
			m.cursor = 0
			return m, m.load()
		case "esc":
			m.searchInput.Blur()
			m.state = usersListView
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

const rowFormat = "%-5s %-16s %-28s %-10s %-8s %s"

func (m *usersModel) View() string {
	if m.state == usersFormView {
		return m.form.View()
	}

	title := i18n.T("tui.users.title")
	if m.search != "" {
		title += " (" + m.search + ")"
	}
	items := []string{titleStyle.Render(title), ""}

	items = append(items, columnHeaderStyle.Render(fmt.Sprintf(rowFormat,
		i18n.T("tui.users.col_id"),
		i18n.T("tui.users.col_username"),
		i18n.T("tui.users.col_email"),
		i18n.T("tui.users.col_status"),
		i18n.T("tui.users.col_role"),
		i18n.T("tui.users.col_created"))))

	for i, u := range m.users {
		line := fmt.Sprintf(rowFormat,
			strconv.Itoa(u.ID),
			truncate(u.Username, 16),
			truncate(u.Email, 28),
			statusLabel(u),
			roleLabel(u),
			formatCreated(u))
		switch {
		case i == m.cursor:
			line = selectedItemStyle.Render("▸ " + line)
		case !u.IsActive:
			line = inactiveItemStyle.Render("  " + line)
		default:
			line = itemStyle.Render("  " + line)
		}
		items = append(items, line)
	}

	items = append(items, "")
	if m.loading {
		items = append(items, specialStyle.Render(i18n.T("tui.users.loading")))
	} else {
		items = append(items, helpStyle.Render(i18n.T("tui.users.page", m.page, m.total)))
	}
	if m.state == usersSearchView {
		items = append(items, "", m.searchInput.View())
	}
	if m.isConfirmingDelete {
		items = append(items, "", dialogBoxStyle.Render(specialStyle.Render(i18n.T("tui.users.confirm_delete", m.userToDelete.Username))))
	}
	if m.status != "" {
		items = append(items, "", successStyle.Render(m.status))
	}
	items = append(items, "", helpStyle.Render(i18n.T("tui.users.help")))
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func statusLabel(u model.User) string {
	if u.IsActive {
		return i18n.T("cli.active")
	}
	return i18n.T("cli.inactive")
}

func roleLabel(u model.User) string {
	if u.IsAdmin {
		return i18n.T("cli.admin")
	}
	return i18n.T("cli.user")
}

func formatCreated(u model.User) string {
	if u.CreatedAt.IsZero() {
		return "-"
	}
	return u.CreatedAt.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
