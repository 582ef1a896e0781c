// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package notify holds the sinks the gateway reports to: toast delivery for
// user-facing messages and navigation hooks for session expiry.
package notify // import "github.com/toeirei/usermgr/internal/notify"

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/toeirei/usermgr/internal/gateway"
	"github.com/toeirei/usermgr/internal/i18n"
)

var toastStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

// Writer prints each message as a styled line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer printing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Notify implements gateway.Notifier.
func (n *Writer) Notify(msg string) {
	if msg == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.w, toastStyle.Render("✗ "+msg))
}

// Queue buffers messages for a UI loop to pick up. Notify never blocks; when
// the buffer is full the message is dropped.
type Queue struct {
	ch chan string
}

// NewQueue returns a Queue holding up to size pending messages.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan string, size)}
}

// Notify implements gateway.Notifier.
func (q *Queue) Notify(msg string) {
	if msg == "" {
		return
	}
	select {
	case q.ch <- msg:
	default:
	}
}

// C is the channel messages are delivered on.
func (q *Queue) C() <-chan string { return q.ch }

// Routes buffers navigation requests the same way Queue buffers messages.
type Routes struct {
	ch chan string
}

// NewRoutes returns a Routes holding up to size pending routes.
func NewRoutes(size int) *Routes {
	if size < 1 {
		size = 1
	}
	return &Routes{ch: make(chan string, size)}
}

// Navigate implements gateway.Navigator.
func (r *Routes) Navigate(route string) {
	select {
	case r.ch <- route:
	default:
	}
}

// C is the channel routes are delivered on.
func (r *Routes) C() <-chan string { return r.ch }

// LoginHint is the command-line navigator: there is no screen to switch to,
// so it tells the user how to log in again.
type LoginHint struct {
	W io.Writer
}

// Navigate implements gateway.Navigator.
func (h LoginHint) Navigate(route string) {
	if route != gateway.LoginRoute || h.W == nil {
		return
	}
	_, _ = fmt.Fprintln(h.W, i18n.T("cli.login_hint"))
}

// Discard drops every message.
type Discard struct{}

// Notify implements gateway.Notifier.
func (Discard) Notify(string) {}
