// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for usermgr.
//
// Usage:
//
//	go run . [flags]
//	./usermgr [command] [flags]
//
// Without a command the interactive TUI starts. See --help for options.
package main

import (
	"os"

	"github.com/toeirei/usermgr/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
