// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the usermgr command line using Cobra. Commands are
// thin: they load configuration, wire an app.App and call the session store
// or API client. Without a subcommand the interactive TUI is started.
package cli // import "github.com/toeirei/usermgr/ui/cli"
