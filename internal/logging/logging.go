// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging wraps a charmbracelet logger shared by every package.
// Debug output is off unless SetDebug(true) is called (the --verbose flag).
package logging

import (
	"io"

	clog "github.com/charmbracelet/log"
)

// SetDebug enables or disables debug-level output.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(clog.DebugLevel)
		return
	}
	L.SetLevel(clog.InfoLevel)
}

// SetOutput redirects the package logger. Used by the CLI to keep log lines
// out of command output and by tests to capture them.
func SetOutput(w io.Writer) {
	L.SetOutput(w)
}
