// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ui groups the user-facing front-ends of usermgr.
//
// The command line lives in ui/cli; the interactive console is started from
// there and implemented in internal/tui.
package ui
